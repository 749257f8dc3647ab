// Package connection implements the per-connection flow statistics store.
package connection

import (
	"context"
	"encoding/gob"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/ti-mo/bandix/internal/sinks/types"
	"github.com/ti-mo/bandix/internal/store"
)

const (
	// Name of the store.
	Name = "connection"

	// FileName of the store's snapshot in the data directory.
	FileName = "connections.gob"

	defaultRetention = 24 * time.Hour
)

// Counters are the accumulated totals of a single connection.
type Counters struct {
	PacketsOrig uint64 `json:"packets_orig" yaml:"packets_orig"`
	BytesOrig   uint64 `json:"bytes_orig" yaml:"bytes_orig"`
	PacketsRet  uint64 `json:"packets_ret" yaml:"packets_ret"`
	BytesRet    uint64 `json:"bytes_ret" yaml:"bytes_ret"`

	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen  time.Time `json:"last_seen" yaml:"last_seen"`
}

// Record is the persisted representation of a connection.
type Record struct {
	Flow     Flow     `json:"flow" yaml:"flow"`
	Counters Counters `json:"counters" yaml:",inline"`
}

// Snapshot is the on-disk format of the connection store.
type Snapshot struct {
	Header store.Header `yaml:",inline"`
	Flows  []Record     `yaml:"flows"`
}

// Config holds the parameters of a connection Store.
type Config struct {
	// Directory the snapshot file is written to.
	Dir string
	// Capture gate consulted before accepting samples. Optional.
	Gate store.Gate
	// Flows not seen for this long are dropped after being persisted.
	// Defaults to 24 hours, negative disables pruning.
	Retention time.Duration
	// Maximum amount of flows kept in memory, 0 for unlimited.
	MaxEntries int
	// Clock used for retention, defaults to time.Now.
	Now func() time.Time
}

// Store accumulates per-connection counters.
type Store struct {
	path       string
	gate       store.Gate
	retention  time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.Mutex
	flows map[Flow]*Counters

	dropped atomic.Uint64
	evicted atomic.Uint64

	lastMu sync.Mutex
	last   *Snapshot
}

// New returns an empty connection Store. Call Load to restore persisted flows.
func New(cfg Config) *Store {

	if cfg.Retention == 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		path:       filepath.Join(cfg.Dir, FileName),
		gate:       store.GateOrOpen(cfg.Gate),
		retention:  cfg.Retention,
		maxEntries: cfg.MaxEntries,
		now:        cfg.Now,
		flows:      make(map[Flow]*Counters),
	}
}

// Name returns the name of the store.
func (s *Store) Name() string {
	return Name
}

// Path returns the location of the store's snapshot file.
func (s *Store) Path() string {
	return s.path
}

// Add adds the packet and byte values of delta to the counters of flow f,
// seen at time t. Returns false if the delta was rejected because capture
// is disabled.
func (s *Store) Add(f Flow, delta Counters, t time.Time) bool {

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.Enabled() {
		s.dropped.Add(1)
		return false
	}

	c, ok := s.flows[f]
	if !ok {
		if s.maxEntries > 0 && len(s.flows) >= s.maxEntries {
			s.evictOldest()
		}
		c = &Counters{FirstSeen: t}
		s.flows[f] = c
	}

	c.PacketsOrig += delta.PacketsOrig
	c.BytesOrig += delta.BytesOrig
	c.PacketsRet += delta.PacketsRet
	c.BytesRet += delta.BytesRet
	if t.Before(c.FirstSeen) {
		c.FirstSeen = t
	}
	if t.After(c.LastSeen) {
		c.LastSeen = t
	}

	return true
}

// evictOldest removes the least recently seen flow. Must be called with mu held.
func (s *Store) evictOldest() {
	var oldest Flow
	var ot time.Time
	first := true

	for f, c := range s.flows {
		if first || c.LastSeen.Before(ot) {
			oldest, ot, first = f, c.LastSeen, false
		}
	}

	if !first {
		delete(s.flows, oldest)
		s.evicted.Add(1)
	}
}

// Get returns a copy of the counters of flow f.
func (s *Store) Get(f Flow) (Counters, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.flows[f]
	if !ok {
		return Counters{}, false
	}
	return *c, true
}

// Len returns the amount of flows in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

// Dropped returns the amount of samples rejected since capture was disabled.
func (s *Store) Dropped() uint64 {
	return s.dropped.Load()
}

// Evicted returns the amount of flows evicted to respect MaxEntries.
func (s *Store) Evicted() uint64 {
	return s.evicted.Load()
}

// Flows returns the current counters of all flows, in flow order.
func (s *Store) Flows() []Record {
	return s.snapshot()
}

func (s *Store) snapshot() []Record {

	s.mu.Lock()
	out := make([]Record, 0, len(s.flows))
	for f, c := range s.flows {
		out = append(out, Record{Flow: f, Counters: *c})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Flow.less(out[j].Flow) })

	return out
}

// Flush writes a snapshot of all flows to the store's file. Once persisted,
// flows idle for longer than the retention period are removed from memory.
func (s *Store) Flush(ctx context.Context) error {

	recs := s.snapshot()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := &Snapshot{
		Header: store.NewHeader(Name, s.now()),
		Flows:  recs,
	}

	err := store.WriteFile(s.path, 0644, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(snap)
	})
	if err != nil {
		return errors.Wrap(err, "writing connection snapshot")
	}

	s.lastMu.Lock()
	s.last = snap
	s.lastMu.Unlock()

	s.prune()

	return nil
}

// prune removes flows that have been idle for longer than the retention period.
func (s *Store) prune() {
	if s.retention < 0 {
		return
	}

	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	for f, c := range s.flows {
		if c.LastSeen.Before(cutoff) {
			delete(s.flows, f)
		}
	}
}

// Load restores the store's flows from its snapshot file, if present.
func (s *Store) Load() error {

	snap, found, err := Read(s.path)
	if err != nil || !found {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range snap.Flows {
		c, ok := s.flows[r.Flow]
		if !ok {
			c = &Counters{FirstSeen: r.Counters.FirstSeen}
			s.flows[r.Flow] = c
		}
		c.PacketsOrig += r.Counters.PacketsOrig
		c.BytesOrig += r.Counters.BytesOrig
		c.PacketsRet += r.Counters.PacketsRet
		c.BytesRet += r.Counters.BytesRet
		if r.Counters.LastSeen.After(c.LastSeen) {
			c.LastSeen = r.Counters.LastSeen
		}
	}

	return nil
}

// Read decodes the connection snapshot at path. Returns false if it does not exist.
func Read(path string) (*Snapshot, bool, error) {

	var snap Snapshot
	found, err := store.ReadFile(path, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&snap)
	})
	if err != nil || !found {
		return nil, found, err
	}

	if err := store.CheckVersion(snap.Header.Version); err != nil {
		return nil, true, err
	}

	return &snap, true, nil
}

// Points returns one sink point per flow of the last persisted snapshot.
func (s *Store) Points() []types.Point {

	s.lastMu.Lock()
	snap := s.last
	s.lastMu.Unlock()

	if snap == nil {
		return nil
	}

	out := make([]types.Point, 0, len(snap.Flows))
	for _, r := range snap.Flows {
		out = append(out, types.Point{
			Measurement: Name,
			Tags: map[string]string{
				"proto":    r.Flow.ProtoName(),
				"src_addr": r.Flow.SrcAddr.String(),
				"src_port": strconv.FormatUint(uint64(r.Flow.SrcPort), 10),
				"dst_addr": r.Flow.DstAddr.String(),
				"dst_port": strconv.FormatUint(uint64(r.Flow.DstPort), 10),
			},
			Fields: map[string]interface{}{
				"packets_orig": r.Counters.PacketsOrig,
				"bytes_orig":   r.Counters.BytesOrig,
				"packets_ret":  r.Counters.PacketsRet,
				"bytes_ret":    r.Counters.BytesRet,
				"bytes_total":  r.Counters.BytesOrig + r.Counters.BytesRet,
			},
			Time: r.Counters.LastSeen,
		})
	}

	return out
}
