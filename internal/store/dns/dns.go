// Package dns implements the DNS query activity store.
package dns

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/pkg/errors"
	"lukechampine.com/blake3"

	"github.com/ti-mo/bandix/internal/sinks/types"
	"github.com/ti-mo/bandix/internal/store"
)

const (
	// Name of the store.
	Name = "dns"

	// FileName of the store's snapshot in the data directory.
	FileName = "dns.json"

	keyLen = 16
)

// Key is the signature of a query, derived from its client, name and type.
type Key [keyLen]byte

// String returns the hex representation of the Key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// NewKey returns the signature of a query for name of type qtype made by client.
// Names are compared case-insensitively.
func NewKey(client, name string, qtype uint16) Key {

	h := blake3.New(32, nil)
	_, _ = h.Write([]byte(client))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(mdns.CanonicalName(name)))

	var t [2]byte
	binary.BigEndian.PutUint16(t[:], qtype)
	_, _ = h.Write(t[:])

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Event is a single DNS query or response observed on the wire.
type Event struct {
	Client   string
	Name     string
	Type     uint16
	Response bool
	Rcode    uint8
	Time     time.Time
}

// Query holds the accumulated activity of a query signature.
type Query struct {
	Key       string            `json:"key" yaml:"key"`
	Client    string            `json:"client" yaml:"client"`
	Name      string            `json:"name" yaml:"name"`
	Type      string            `json:"type" yaml:"type"`
	Count     uint64            `json:"count" yaml:"count"`
	Responses map[string]uint64 `json:"responses,omitempty" yaml:"responses,omitempty"`
	FirstSeen time.Time         `json:"first_seen" yaml:"first_seen"`
	LastSeen  time.Time         `json:"last_seen" yaml:"last_seen"`
}

// Snapshot is the on-disk format of the dns store.
type Snapshot struct {
	store.Header `yaml:",inline"`
	Queries      []Query `json:"queries" yaml:"queries"`
}

// Config holds the parameters of a dns Store.
type Config struct {
	// Directory the snapshot file is written to.
	Dir string
	// Capture gate consulted before accepting events. Optional.
	Gate store.Gate
	// Maximum amount of query signatures kept in memory, 0 for unlimited.
	MaxEntries int
}

// Store accumulates DNS query activity per query signature.
type Store struct {
	path       string
	gate       store.Gate
	maxEntries int

	mu      sync.Mutex
	queries map[Key]*Query

	dropped atomic.Uint64
	evicted atomic.Uint64

	lastMu sync.Mutex
	last   *Snapshot
}

// New returns an empty dns Store. Call Load to restore persisted queries.
func New(cfg Config) *Store {
	return &Store{
		path:       filepath.Join(cfg.Dir, FileName),
		gate:       store.GateOrOpen(cfg.Gate),
		maxEntries: cfg.MaxEntries,
		queries:    make(map[Key]*Query),
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

// TypeName returns the mnemonic of DNS record type t, eg. "AAAA".
func TypeName(t uint16) string {
	return mdns.Type(t).String()
}

// RcodeName returns the mnemonic of response code rc, eg. "NXDOMAIN".
func RcodeName(rc uint8) string {
	if n, ok := mdns.RcodeToString[int(rc)]; ok {
		return n
	}
	return "RCODE" + strconv.Itoa(int(rc))
}

// Record adds a DNS event to the store. Queries increment the signature's
// count, responses are tallied per response code. Returns false if the
// event was rejected because capture is disabled.
func (s *Store) Record(e Event) bool {

	k := NewKey(e.Client, e.Name, e.Type)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.Enabled() {
		s.dropped.Add(1)
		return false
	}

	q, ok := s.queries[k]
	if !ok {
		if s.maxEntries > 0 && len(s.queries) >= s.maxEntries {
			s.evictOldest()
		}
		q = &Query{
			Key:       k.String(),
			Client:    e.Client,
			Name:      mdns.CanonicalName(e.Name),
			Type:      TypeName(e.Type),
			FirstSeen: e.Time,
		}
		s.queries[k] = q
	}

	if e.Response {
		if q.Responses == nil {
			q.Responses = make(map[string]uint64)
		}
		q.Responses[RcodeName(e.Rcode)]++
	} else {
		q.Count++
	}

	if e.Time.After(q.LastSeen) {
		q.LastSeen = e.Time
	}

	return true
}

// evictOldest removes the least recently seen query. Must be called with mu held.
func (s *Store) evictOldest() {
	var oldest Key
	var ot time.Time
	first := true

	for k, q := range s.queries {
		if first || q.LastSeen.Before(ot) {
			oldest, ot, first = k, q.LastSeen, false
		}
	}

	if !first {
		delete(s.queries, oldest)
		s.evicted.Add(1)
	}
}

// Get returns a copy of the query with signature k.
func (s *Store) Get(k Key) (Query, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[k]
	if !ok {
		return Query{}, false
	}
	return copyQuery(q), true
}

// Len returns the amount of query signatures in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

// Dropped returns the amount of events rejected since capture was disabled.
func (s *Store) Dropped() uint64 {
	return s.dropped.Load()
}

// Evicted returns the amount of query signatures evicted to respect MaxEntries.
func (s *Store) Evicted() uint64 {
	return s.evicted.Load()
}

func copyQuery(q *Query) Query {
	c := *q
	if q.Responses != nil {
		c.Responses = make(map[string]uint64, len(q.Responses))
		for k, v := range q.Responses {
			c.Responses[k] = v
		}
	}
	return c
}

// Queries returns the current activity of all query signatures, most frequent first.
func (s *Store) Queries() []Query {
	return s.snapshot()
}

func (s *Store) snapshot() []Query {

	s.mu.Lock()
	out := make([]Query, 0, len(s.queries))
	for _, q := range s.queries {
		out = append(out, copyQuery(q))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})

	return out
}

// Flush writes a snapshot of all query signatures to the store's file,
// most frequent first.
func (s *Store) Flush(ctx context.Context) error {

	qs := s.snapshot()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := &Snapshot{
		Header:  store.NewHeader(Name, time.Now()),
		Queries: qs,
	}

	err := store.WriteFile(s.path, 0644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	})
	if err != nil {
		return errors.Wrap(err, "writing dns snapshot")
	}

	s.lastMu.Lock()
	s.last = snap
	s.lastMu.Unlock()

	return nil
}

// Load restores the store's queries from its snapshot file, if present.
// A snapshot with any invalid entry is rejected as a whole. Loaded queries
// are subject to MaxEntries, the least recently seen are evicted first.
func (s *Store) Load() error {

	snap, found, err := Read(s.path)
	if err != nil || !found {
		return err
	}

	loaded := make(map[Key]Query, len(snap.Queries))
	for _, pq := range snap.Queries {
		b, err := hex.DecodeString(pq.Key)
		if err != nil || len(b) != keyLen {
			return errors.Errorf("invalid query key '%s' in %s", pq.Key, s.path)
		}

		var k Key
		copy(k[:], b)
		loaded[k] = pq
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, pq := range loaded {
		q, ok := s.queries[k]
		if !ok {
			c := pq
			c.Responses = nil
			c.Count = 0
			q = &c
			s.queries[k] = q
		}

		q.Count += pq.Count
		for rc, n := range pq.Responses {
			if q.Responses == nil {
				q.Responses = make(map[string]uint64)
			}
			q.Responses[rc] += n
		}
		if pq.FirstSeen.Before(q.FirstSeen) {
			q.FirstSeen = pq.FirstSeen
		}
		if pq.LastSeen.After(q.LastSeen) {
			q.LastSeen = pq.LastSeen
		}
	}

	for s.maxEntries > 0 && len(s.queries) > s.maxEntries {
		s.evictOldest()
	}

	return nil
}

// Read decodes the dns snapshot at path. Returns false if it does not exist.
func Read(path string) (*Snapshot, bool, error) {

	var snap Snapshot
	found, err := store.ReadFile(path, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&snap)
	})
	if err != nil || !found {
		return nil, found, err
	}

	if err := store.CheckVersion(snap.Version); err != nil {
		return nil, true, err
	}

	return &snap, true, nil
}

// Points returns one sink point per query signature of the last persisted snapshot.
func (s *Store) Points() []types.Point {

	s.lastMu.Lock()
	snap := s.last
	s.lastMu.Unlock()

	if snap == nil {
		return nil
	}

	out := make([]types.Point, 0, len(snap.Queries))
	for _, q := range snap.Queries {
		f := map[string]interface{}{
			"count": q.Count,
		}
		for rc, n := range q.Responses {
			f["rcode_"+strings.ToLower(rc)] = n
		}

		out = append(out, types.Point{
			Measurement: Name,
			Tags: map[string]string{
				"client": q.Client,
				"name":   q.Name,
				"type":   q.Type,
			},
			Fields: f,
			Time:   q.LastSeen,
		})
	}

	return out
}
