package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats holds various statistics and information about the
// flush pipeline.
type Stats struct {

	// flush attempts that ran to completion without errors
	FlushesOK uint64 `json:"flushes_ok"`
	// flush attempts where at least one store failed
	FlushesFailed uint64 `json:"flushes_failed"`
	// periodic and manual flushes skipped because a flush was running
	FlushesSkipped uint64 `json:"flushes_skipped"`

	// unix nanosecond timestamp of the end of the last flush
	LastFlush int64 `json:"last_flush_unix_nano"`
	// duration of the last flush in nanoseconds
	LastFlushDuration int64 `json:"last_flush_duration_ns"`

	// set by Pipeline.Stats, not updated atomically
	Running        bool `json:"flush_running"`
	CaptureEnabled bool `json:"capture_enabled"`
	ShuttingDown   bool `json:"shutting_down"`
}

// incrFlushes atomically records the outcome of a flush that ended at t.
func (s *Stats) incrFlushes(failed bool, t time.Time, d time.Duration) {
	if failed {
		atomic.AddUint64(&s.FlushesFailed, 1)
	} else {
		atomic.AddUint64(&s.FlushesOK, 1)
	}
	atomic.StoreInt64(&s.LastFlush, t.UnixNano())
	atomic.StoreInt64(&s.LastFlushDuration, int64(d))
}

// incrSkipped atomically increases the skipped flush counter by one.
func (s *Stats) incrSkipped() {
	atomic.AddUint64(&s.FlushesSkipped, 1)
}

// Get returns a copy of the Stats structure created using atomic loads.
// The values can be inconsistent with each other, as they are written and
// read concurrently without locks.
func (s *Stats) Get() Stats {
	return Stats{
		FlushesOK:         atomic.LoadUint64(&s.FlushesOK),
		FlushesFailed:     atomic.LoadUint64(&s.FlushesFailed),
		FlushesSkipped:    atomic.LoadUint64(&s.FlushesSkipped),
		LastFlush:         atomic.LoadInt64(&s.LastFlush),
		LastFlushDuration: atomic.LoadInt64(&s.LastFlushDuration),
	}
}
