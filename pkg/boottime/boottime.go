// Package boottime converts kernel monotonic timestamps, like the ones
// produced by eBPF's bpf_ktime_get_ns, into wall clock time.
package boottime

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Amount of samples taken when estimating the boot time.
const rounds = 10

var (
	mu     sync.Mutex
	cached time.Time
	taken  time.Time

	// Re-estimate at most this often to follow wall clock adjustments.
	maxAge = 10 * time.Second
)

// monotonic returns the current value of CLOCK_MONOTONIC.
func monotonic() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, err
	}
	return time.Duration(ts.Nano()), nil
}

// Estimate returns the wall clock time at which the monotonic clock was zero.
// Samples the monotonic clock and time.Now() several times and keeps the
// sample with the smallest gap between both readings.
func Estimate() (time.Time, error) {

	var best time.Time
	var gap time.Duration = -1

	for i := 0; i < rounds; i++ {
		before := time.Now()
		mono, err := monotonic()
		if err != nil {
			return time.Time{}, err
		}
		after := time.Now()

		if d := after.Sub(before); gap < 0 || d < gap {
			gap = d
			// Use the midpoint of both wall clock readings.
			mid := before.Add(d / 2)
			best = mid.Add(-mono)
		}
	}

	return best.Round(0), nil
}

// Absolute converts a monotonic timestamp in nanoseconds to wall clock time.
// Falls back to time.Now() if the boot time cannot be estimated.
func Absolute(ns uint64) time.Time {

	mu.Lock()
	defer mu.Unlock()

	if cached.IsZero() || time.Since(taken) > maxAge {
		bt, err := Estimate()
		if err != nil {
			return time.Now()
		}
		cached, taken = bt, time.Now()
	}

	return cached.Add(time.Duration(ns))
}
