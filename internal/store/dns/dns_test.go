package dns

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-mo/bandix/internal/store"
	"github.com/ti-mo/bandix/pkg/gate"
)

func TestNewKey(t *testing.T) {
	a := NewKey("192.168.1.10", "Example.com", mdns.TypeA)

	assert.Equal(t, a, NewKey("192.168.1.10", "example.com.", mdns.TypeA))
	assert.NotEqual(t, a, NewKey("192.168.1.10", "example.com", mdns.TypeAAAA))
	assert.NotEqual(t, a, NewKey("192.168.1.11", "example.com", mdns.TypeA))
	assert.Len(t, a.String(), 32)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "AAAA", TypeName(mdns.TypeAAAA))
	assert.Equal(t, "NXDOMAIN", RcodeName(mdns.RcodeNameError))
	assert.Equal(t, "RCODE200", RcodeName(200))
}

func TestFlushOrdering(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Dir: dir})
	now := time.Now()

	q := func(client, name string) Event {
		return Event{Client: client, Name: name, Type: mdns.TypeA, Time: now}
	}

	assert.True(t, s.Record(q("10.0.0.2", "rare.example")))
	for i := 0; i < 3; i++ {
		assert.True(t, s.Record(q("10.0.0.2", "popular.example")))
	}
	r := q("10.0.0.2", "popular.example")
	r.Response, r.Rcode = true, mdns.RcodeSuccess
	assert.True(t, s.Record(r))
	r.Rcode = mdns.RcodeServerFailure
	assert.True(t, s.Record(r))

	require.NoError(t, s.Flush(context.Background()))

	snap, found, err := Read(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, snap.Queries, 2)

	top := snap.Queries[0]
	assert.Equal(t, "popular.example.", top.Name)
	assert.Equal(t, "A", top.Type)
	assert.Equal(t, uint64(3), top.Count)
	assert.Equal(t, map[string]uint64{"NOERROR": 1, "SERVFAIL": 1}, top.Responses)
	assert.Equal(t, uint64(1), snap.Queries[1].Count)

	pts := s.Points()
	require.Len(t, pts, 2)
	assert.Equal(t, uint64(1), pts[0].Fields["rcode_servfail"])
	assert.Equal(t, "10.0.0.2", pts[0].Tags["client"])
}

func TestMaxEntries(t *testing.T) {
	s := New(Config{Dir: t.TempDir(), MaxEntries: 2})
	now := time.Now()

	s.Record(Event{Client: "c", Name: "a.example", Time: now})
	s.Record(Event{Client: "c", Name: "b.example", Time: now.Add(time.Second)})
	s.Record(Event{Client: "c", Name: "a.example", Time: now.Add(2 * time.Second)})
	s.Record(Event{Client: "c", Name: "c.example", Time: now.Add(3 * time.Second)})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, uint64(1), s.Evicted())

	_, ok := s.Get(NewKey("c", "b.example", 0))
	assert.False(t, ok, "least recently seen query must be evicted")
	_, ok = s.Get(NewKey("c", "a.example", 0))
	assert.True(t, ok)
}

func TestGateRejects(t *testing.T) {
	g := gate.New()
	s := New(Config{Dir: t.TempDir(), Gate: g})

	g.Disable()
	assert.False(t, s.Record(Event{Client: "c", Name: "x.example"}))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(1), s.Dropped())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	e := Event{Client: "c", Name: "x.example", Type: mdns.TypeMX, Time: now}

	s := New(Config{Dir: dir})
	s.Record(e)
	s.Record(e)
	require.NoError(t, s.Flush(context.Background()))

	s2 := New(Config{Dir: dir})
	require.NoError(t, s2.Load())
	s2.Record(e)

	q, ok := s2.Get(NewKey("c", "x.example", mdns.TypeMX))
	require.True(t, ok)
	assert.Equal(t, uint64(3), q.Count)
	assert.Equal(t, "MX", q.Type)
}

func writeSnapshot(t *testing.T, dir string, qs ...Query) {
	t.Helper()
	snap := Snapshot{Header: store.NewHeader(Name, time.Now()), Queries: qs}
	require.NoError(t, store.WriteFile(filepath.Join(dir, FileName), 0644, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(snap)
	}))
}

func TestLoadRejectsInvalidKey(t *testing.T) {
	dir := t.TempDir()
	k := NewKey("c", "x.example", mdns.TypeA)

	writeSnapshot(t, dir,
		Query{Key: k.String(), Client: "c", Name: "x.example.", Type: "A", Count: 7},
		Query{Key: "zz", Client: "c", Name: "y.example.", Type: "A", Count: 1},
	)

	s := New(Config{Dir: dir})
	require.Error(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestLoadMaxEntries(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := NewKey("c", "old.example", mdns.TypeA)
	mid := NewKey("c", "mid.example", mdns.TypeA)
	recent := NewKey("c", "recent.example", mdns.TypeA)

	writeSnapshot(t, dir,
		Query{Key: old.String(), Count: 1, LastSeen: now.Add(-2 * time.Hour)},
		Query{Key: mid.String(), Count: 1, LastSeen: now.Add(-time.Hour)},
		Query{Key: recent.String(), Count: 1, LastSeen: now},
	)

	s := New(Config{Dir: dir, MaxEntries: 2})
	require.NoError(t, s.Load())

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, uint64(1), s.Evicted())
	_, ok := s.Get(old)
	assert.False(t, ok)
	_, ok = s.Get(recent)
	assert.True(t, ok)
}
