package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingFirer struct {
	fired []string
	err   error
}

func (f *recordingFirer) Kind() string { return "fake" }

func (f *recordingFirer) Fire(ctx context.Context, busySeconds string) error {
	f.fired = append(f.fired, busySeconds)
	return f.err
}

func TestRunBursts_StopsAfterBurstCount(t *testing.T) {
	f := &recordingFirer{}
	opts := &callerOptions{minSeconds: 1, maxSeconds: 2, minBurst: 2, maxBurst: 2, bursts: 3}

	err := runBursts(context.Background(), zap.NewNop(), opts, []firer{f}, rand.New(rand.NewPCG(1, 2)))

	require.NoError(t, err)
	assert.Len(t, f.fired, 6)
	for _, s := range f.fired {
		assert.Regexp(t, `^[12]\.\d\d$`, s)
	}
}

func TestRunBursts_KeepsGoingOnFailure(t *testing.T) {
	f := &recordingFirer{err: errors.New("boom")}
	opts := &callerOptions{minSeconds: 1, maxSeconds: 1, minBurst: 1, maxBurst: 1, bursts: 2}

	err := runBursts(context.Background(), zap.NewNop(), opts, []firer{f}, rand.New(rand.NewPCG(1, 2)))

	require.NoError(t, err)
	assert.Len(t, f.fired, 2)
}

func TestRunBursts_CancelledContext(t *testing.T) {
	f := &recordingFirer{}
	opts := &callerOptions{minBurst: 5, maxBurst: 5}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runBursts(ctx, zap.NewNop(), opts, []firer{f}, rand.New(rand.NewPCG(1, 2)))

	require.NoError(t, err)
	assert.Len(t, f.fired, 1)
}

func TestBuildFirers_Validation(t *testing.T) {
	_, err := buildFirers(&callerOptions{minSeconds: 2, maxSeconds: 1, minBurst: 1, maxBurst: 1, kinds: []string{"http"}})
	assert.Error(t, err)

	_, err = buildFirers(&callerOptions{minBurst: 0, maxBurst: 1, kinds: []string{"http"}})
	assert.Error(t, err)

	_, err = buildFirers(&callerOptions{minBurst: 1, maxBurst: 1, kinds: []string{"carrier-pigeon"}})
	assert.Error(t, err)

	_, err = buildFirers(&callerOptions{minBurst: 1, maxBurst: 1})
	assert.Error(t, err)

	firers, err := buildFirers(&callerOptions{minBurst: 1, maxBurst: 1, kinds: []string{"http", "blob"}, blobDir: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, firers, 2)
}

func TestHTTPFirer(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("busySeconds")
		if got == "bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer ts.Close()

	f := &httpFirer{url: ts.URL + "/api/HttpTrigger", client: ts.Client()}

	require.NoError(t, f.Fire(context.Background(), "1.25"))
	assert.Equal(t, "1.25", got)
	assert.Error(t, f.Fire(context.Background(), "bad"))
}

func TestBlobFirer(t *testing.T) {
	dir := t.TempDir()
	f := &blobFirer{dir: dir, base64: true}

	require.NoError(t, f.Fire(context.Background(), "1.5"))
	require.NoError(t, f.Fire(context.Background(), "1.5"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "MS41", entries[0].Name())

	_, err = os.Stat(filepath.Join(dir, "MS41"))
	assert.NoError(t, err)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "2", encode("2", false))
	assert.Equal(t, "Mg==", encode("2", true))
}
