package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/cilium/ebpf"
	"github.com/pkg/errors"

	"github.com/ti-mo/bandix/internal/store"
	"github.com/ti-mo/bandix/internal/store/connection"
)

// ConnectionPoller polls the per-flow counter map and records the
// increments since the previous poll into the connection store.
type ConnectionPoller struct {
	m        *ebpf.Map
	interval time.Duration
	gate     store.Gate

	t *connTracker
}

// OpenConnection opens the connection map pinned at path.
func OpenConnection(path string, s *connection.Store, g store.Gate, interval time.Duration) (*ConnectionPoller, error) {

	m, err := loadPinned(path, true)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf(errFmtOpen, path))
	}

	return &ConnectionPoller{
		m:        m,
		interval: interval,
		gate:     g,
		t:        newConnTracker(s),
	}, nil
}

// Name returns the name of the adapter.
func (p *ConnectionPoller) Name() string {
	return connection.Name
}

// Run polls the map until ctx is cancelled or capture is disabled.
func (p *ConnectionPoller) Run(ctx context.Context) error {
	return poll(ctx, p.Name(), p.interval, p.gate, p.poll)
}

func (p *ConnectionPoller) poll() error {

	var (
		k connKey
		v connValue
	)

	p.t.begin()

	it := p.m.Iterate()
	for it.Next(&k, &v) {
		p.t.observe(connection.Flow(k), v)
	}

	p.t.end()

	return it.Err()
}

// Close releases the map.
func (p *ConnectionPoller) Close() error {
	return p.m.Close()
}

// connTracker turns cumulative kernel flow counters into deltas, using the
// first poll as a baseline like trafficTracker.
type connTracker struct {
	s     *connection.Store
	prev  map[connection.Flow]connValue
	seen  map[connection.Flow]bool
	first bool
}

func newConnTracker(s *connection.Store) *connTracker {
	return &connTracker{
		s:     s,
		prev:  make(map[connection.Flow]connValue),
		first: true,
	}
}

func (t *connTracker) begin() {
	t.seen = make(map[connection.Flow]bool, len(t.prev))
}

func (t *connTracker) observe(f connection.Flow, v connValue) {

	t.seen[f] = true
	prev, ok := t.prev[f]
	t.prev[f] = v

	if t.first {
		return
	}

	// Conntrack entries are reused for new flows with the same tuple.
	if !ok || v.BytesOrig < prev.BytesOrig || v.BytesRet < prev.BytesRet {
		prev = connValue{}
	}

	d := connection.Counters{
		PacketsOrig: sub(v.PacketsOrig, prev.PacketsOrig),
		BytesOrig:   v.BytesOrig - prev.BytesOrig,
		PacketsRet:  sub(v.PacketsRet, prev.PacketsRet),
		BytesRet:    v.BytesRet - prev.BytesRet,
	}
	if d == (connection.Counters{}) {
		return
	}

	t.s.Add(f, d, seenAt(v.LastSeen))
}

func (t *connTracker) end() {
	for f := range t.prev {
		if !t.seen[f] {
			delete(t.prev, f)
		}
	}
	t.first = false
}
