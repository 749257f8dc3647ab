package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/cilium/ebpf"
	"github.com/pkg/errors"

	"github.com/ti-mo/bandix/internal/store"
	"github.com/ti-mo/bandix/internal/store/traffic"
	"github.com/ti-mo/bandix/pkg/boottime"
)

// TrafficPoller polls the per-device counter map and records the
// increments since the previous poll into the traffic store.
type TrafficPoller struct {
	m        *ebpf.Map
	interval time.Duration
	gate     store.Gate

	t *trafficTracker
}

// OpenTraffic opens the traffic map pinned at path.
func OpenTraffic(path string, s *traffic.Store, g store.Gate, interval time.Duration) (*TrafficPoller, error) {

	m, err := loadPinned(path, true)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf(errFmtOpen, path))
	}

	return &TrafficPoller{
		m:        m,
		interval: interval,
		gate:     g,
		t:        newTrafficTracker(s),
	}, nil
}

// Name returns the name of the adapter.
func (p *TrafficPoller) Name() string {
	return traffic.Name
}

// Run polls the map until ctx is cancelled or capture is disabled.
func (p *TrafficPoller) Run(ctx context.Context) error {
	return poll(ctx, p.Name(), p.interval, p.gate, p.poll)
}

func (p *TrafficPoller) poll() error {

	var (
		k trafficKey
		v trafficValue
	)

	p.t.begin()

	it := p.m.Iterate()
	for it.Next(&k, &v) {
		p.t.observe(k, v)
	}

	p.t.end()

	return it.Err()
}

// Close releases the map.
func (p *TrafficPoller) Close() error {
	return p.m.Close()
}

// trafficTracker turns cumulative kernel counters into deltas. Counters
// present during the first poll are taken as a baseline, since a pinned
// map outlives restarts of the agent.
type trafficTracker struct {
	s     *traffic.Store
	prev  map[trafficKey]trafficValue
	seen  map[trafficKey]bool
	first bool
}

func newTrafficTracker(s *traffic.Store) *trafficTracker {
	return &trafficTracker{
		s:     s,
		prev:  make(map[trafficKey]trafficValue),
		first: true,
	}
}

func (t *trafficTracker) begin() {
	t.seen = make(map[trafficKey]bool, len(t.prev))
}

func (t *trafficTracker) observe(k trafficKey, v trafficValue) {

	t.seen[k] = true
	prev, ok := t.prev[k]
	t.prev[k] = v

	if t.first {
		return
	}

	// A missing or reset entry counts from zero.
	if !ok || v.RxBytes < prev.RxBytes || v.TxBytes < prev.TxBytes {
		prev = trafficValue{}
	}

	d := traffic.Counters{
		RxBytes:   v.RxBytes - prev.RxBytes,
		TxBytes:   v.TxBytes - prev.TxBytes,
		RxPackets: sub(v.RxPackets, prev.RxPackets),
		TxPackets: sub(v.TxPackets, prev.TxPackets),
	}
	if d == (traffic.Counters{}) {
		return
	}

	t.s.Add(k.String(), d, seenAt(v.LastSeen))
}

// end forgets keys that disappeared from the map.
func (t *trafficTracker) end() {
	for k := range t.prev {
		if !t.seen[k] {
			delete(t.prev, k)
		}
	}
	t.first = false
}

// sub returns a-b, or a if b is larger.
func sub(a, b uint64) uint64 {
	if b > a {
		return a
	}
	return a - b
}

// seenAt converts a monotonic kernel timestamp to wall time. Zero means now.
func seenAt(ns uint64) time.Time {
	if ns == 0 {
		return time.Now()
	}
	return boottime.Absolute(ns)
}
