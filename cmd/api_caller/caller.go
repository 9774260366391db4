package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type callerOptions struct {
	httpURL      string
	natsURL      string
	subject      string
	blobDir      string
	kinds        []string
	minSeconds   float64
	maxSeconds   float64
	minBurst     int
	maxBurst     int
	bursts       int
	callInterval time.Duration
	burstPause   time.Duration
	base64       bool
}

// firer sends one trigger event asking the beaver to work for busySeconds.
type firer interface {
	Kind() string
	Fire(ctx context.Context, busySeconds string) error
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &callerOptions{}

	cmd := &cobra.Command{
		Use:   "api_caller",
		Short: "Fire bursts of Busy Beaver triggers",
		Long: `Fires bursts of HTTP, queue and blob triggers at a running Busy Beaver.
Each burst picks one trigger kind, a burst size and a random amount of busy
seconds, sends that many events and pauses before the next burst.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			firers, err := buildFirers(opts)
			if err != nil {
				return err
			}
			defer closeFirers(firers)
			return runBursts(cmd.Context(), logger, opts, firers, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.httpURL, "http-url", "http://127.0.0.1:8080/api/HttpTrigger", "HttpTrigger endpoint")
	f.StringVar(&opts.natsURL, "nats-url", nats.DefaultURL, "NATS server for queue triggers")
	f.StringVar(&opts.subject, "subject", "busy-beaver", "NATS subject for queue triggers")
	f.StringVar(&opts.blobDir, "blob-dir", "./blobs", "Directory watched for blob triggers")
	f.StringSliceVar(&opts.kinds, "kinds", []string{"http"}, "Trigger kinds to fire: http, queue, blob")
	f.Float64Var(&opts.minSeconds, "min-seconds", 0.5, "Lower bound of busy seconds per event")
	f.Float64Var(&opts.maxSeconds, "max-seconds", 3, "Upper bound of busy seconds per event")
	f.IntVar(&opts.minBurst, "min-burst", 10, "Smallest burst")
	f.IntVar(&opts.maxBurst, "max-burst", 50, "Largest burst")
	f.IntVar(&opts.bursts, "bursts", 0, "Number of bursts, 0 runs until interrupted")
	f.DurationVar(&opts.callInterval, "call-interval", 200*time.Millisecond, "Pause between calls within a burst")
	f.DurationVar(&opts.burstPause, "burst-pause", 5*time.Second, "Pause between bursts")
	f.BoolVar(&opts.base64, "base64", false, "Base64-encode busy seconds for queue and blob triggers")

	return cmd
}

func buildFirers(opts *callerOptions) ([]firer, error) {
	if opts.maxSeconds < opts.minSeconds {
		return nil, fmt.Errorf("--max-seconds %v is below --min-seconds %v", opts.maxSeconds, opts.minSeconds)
	}
	if opts.minBurst < 1 || opts.maxBurst < opts.minBurst {
		return nil, fmt.Errorf("burst range [%d, %d] is invalid", opts.minBurst, opts.maxBurst)
	}

	var firers []firer
	for _, kind := range opts.kinds {
		switch kind {
		case "http":
			firers = append(firers, &httpFirer{url: opts.httpURL, client: &http.Client{}})
		case "queue":
			conn, err := nats.Connect(opts.natsURL, nats.Name("busy-beaver-caller"))
			if err != nil {
				closeFirers(firers)
				return nil, fmt.Errorf("failed to connect to %s: %w", opts.natsURL, err)
			}
			firers = append(firers, &queueFirer{conn: conn, subject: opts.subject, base64: opts.base64})
		case "blob":
			if err := os.MkdirAll(opts.blobDir, 0755); err != nil {
				closeFirers(firers)
				return nil, fmt.Errorf("failed to create %s: %w", opts.blobDir, err)
			}
			firers = append(firers, &blobFirer{dir: opts.blobDir, base64: opts.base64})
		default:
			closeFirers(firers)
			return nil, fmt.Errorf("unknown trigger kind %q", kind)
		}
	}
	if len(firers) == 0 {
		return nil, fmt.Errorf("no trigger kinds selected")
	}
	return firers, nil
}

func closeFirers(firers []firer) {
	for _, f := range firers {
		if q, ok := f.(*queueFirer); ok {
			q.conn.Close()
		}
	}
}

// runBursts keeps firing until ctx is done or opts.bursts bursts went out.
func runBursts(ctx context.Context, logger *zap.Logger, opts *callerOptions, firers []firer, r *rand.Rand) error {
	callCount := 0
	logger.Info("Starting bursty trigger caller", zap.Int("kinds", len(firers)))

	for burst := 0; opts.bursts == 0 || burst < opts.bursts; burst++ {
		f := firers[r.IntN(len(firers))]
		repetitions := opts.minBurst + r.IntN(opts.maxBurst-opts.minBurst+1)
		busySeconds := opts.minSeconds + r.Float64()*(opts.maxSeconds-opts.minSeconds)
		seconds := strconv.FormatFloat(busySeconds, 'f', 2, 64)

		logger.Info("Starting new burst",
			zap.String("kind", f.Kind()),
			zap.Int("repetitions", repetitions),
			zap.String("busy_seconds", seconds),
		)

		for i := 0; i < repetitions; i++ {
			if err := f.Fire(ctx, seconds); err != nil {
				logger.Warn("Trigger failed", zap.String("kind", f.Kind()), zap.Error(err))
			} else {
				callCount++
				logger.Debug("Trigger fired", zap.String("kind", f.Kind()), zap.Int("call", callCount))
			}

			if !sleep(ctx, opts.callInterval) {
				return nil
			}
		}

		logger.Info("Burst finished", zap.Int("total_calls", callCount))
		if !sleep(ctx, opts.burstPause) {
			return nil
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type httpFirer struct {
	url    string
	client *http.Client
}

func (f *httpFirer) Kind() string { return "http" }

func (f *httpFirer) Fire(ctx context.Context, busySeconds string) error {
	u, err := url.Parse(f.url)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("busySeconds", busySeconds)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

type queueFirer struct {
	conn    *nats.Conn
	subject string
	base64  bool
}

func (f *queueFirer) Kind() string { return "queue" }

func (f *queueFirer) Fire(ctx context.Context, busySeconds string) error {
	return f.conn.Publish(f.subject, []byte(encode(busySeconds, f.base64)))
}

type blobFirer struct {
	dir    string
	base64 bool
}

func (f *blobFirer) Kind() string { return "blob" }

// Fire drops an empty blob named after busySeconds. The blob is written into
// a staging subdirectory and renamed into place, so the watcher sees exactly
// one create per call even when the name repeats.
func (f *blobFirer) Fire(ctx context.Context, busySeconds string) error {
	name := encode(busySeconds, f.base64)
	staging, err := os.MkdirTemp(f.dir, ".staging-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	tmp := filepath.Join(staging, name)
	if err := os.WriteFile(tmp, nil, 0644); err != nil {
		return err
	}

	dst := filepath.Join(f.dir, name)
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmp, dst)
}

func encode(busySeconds string, b64 bool) string {
	if b64 {
		return base64.StdEncoding.EncodeToString([]byte(busySeconds))
	}
	return busySeconds
}
