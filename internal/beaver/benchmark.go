package beaver

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/samber/lo"
)

// Options bounds the sequence the benchmark shuffles and the sample it returns.
type Options struct {
	Min    int
	Max    int
	Select int
}

// DefaultOptions returns the [0, 999) range with a three element sample.
func DefaultOptions() Options {
	return Options{Min: 0, Max: 999, Select: 3}
}

// Benchmark keeps the calling goroutine busy for busySeconds of wall-clock
// time by swapping random elements of [opts.Min, opts.Max). It returns the
// first opts.Select elements of the shuffled sequence.
//
// The loop never yields and cannot be cancelled. A zero or negative budget
// returns the unshuffled head of the range.
func Benchmark(busySeconds float64, opts Options) []int {
	queue := []int{}
	if opts.Max > opts.Min {
		queue = lo.RangeFrom(opts.Min, opts.Max-opts.Min)
	}

	budget := Budget(busySeconds)
	n := len(queue)

	start := time.Now()
	for time.Since(start) < budget {
		if n == 0 {
			continue
		}
		src := rand.IntN(n)
		dst := rand.IntN(n)
		queue[src], queue[dst] = queue[dst], queue[src]
	}

	return lo.Subset(queue, 0, uint(max(opts.Select, 0)))
}

// Budget converts seconds into the time.Duration the busy loop runs for.
// NaN and negative values map to zero; values beyond the range of
// time.Duration saturate.
func Budget(busySeconds float64) time.Duration {
	if math.IsNaN(busySeconds) || busySeconds <= 0 {
		return 0
	}
	ns := busySeconds * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
