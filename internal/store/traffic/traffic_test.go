package traffic

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-mo/bandix/pkg/gate"
)

type fakeResolver map[string]string

func (f fakeResolver) Lookup(d string) string { return f[d] }

func TestFlushTotals(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Dir: dir, Resolver: fakeResolver{"A": "laptop"}})

	assert.True(t, s.Record("A", Rx, 10, 1))
	assert.True(t, s.Record("A", Tx, 20, 1))
	assert.True(t, s.Record("A", Rx, 30, 1))
	assert.True(t, s.Record("B", Rx, 5, 1))

	require.NoError(t, s.Flush(context.Background()))

	snap, found, err := Read(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, snap.Devices, 2)

	assert.Equal(t, "A", snap.Devices[0].Device)
	assert.Equal(t, "laptop", snap.Devices[0].Hostname)
	assert.Equal(t, uint64(60), snap.Devices[0].TotalBytes)
	assert.Equal(t, uint64(40), snap.Devices[0].RxBytes)
	assert.Equal(t, uint64(3), snap.Devices[0].RxPackets+snap.Devices[0].TxPackets)

	assert.Equal(t, "B", snap.Devices[1].Device)
	assert.Equal(t, uint64(5), snap.Devices[1].TotalBytes)

	assert.Equal(t, Name, snap.Store)
	assert.Equal(t, "1.0.0", snap.Version)

	pts := s.Points()
	require.Len(t, pts, 2)
	assert.Equal(t, "traffic", pts[0].Measurement)
	assert.Equal(t, "laptop", pts[0].Tags["hostname"])
	assert.Equal(t, uint64(60), pts[0].Fields["total_bytes"])
}

func TestGateRejects(t *testing.T) {
	g := gate.New()
	s := New(Config{Dir: t.TempDir(), Gate: g})

	assert.True(t, s.Record("A", Rx, 1, 1))
	g.Disable()
	assert.False(t, s.Record("A", Rx, 1, 1))

	c, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, uint64(1), c.RxBytes)
	assert.Equal(t, uint64(1), s.Dropped())
}

func TestFailedFlushKeepsData(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Dir: dir})

	s.Record("A", Rx, 10, 1)

	// Make the data directory unwritable by replacing it with a file.
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, nil, 0644))
	assert.Error(t, s.Flush(context.Background()))
	assert.Nil(t, s.Points())

	s.Record("A", Rx, 20, 1)

	require.NoError(t, os.Remove(dir))
	require.NoError(t, os.Mkdir(dir, 0755))
	require.NoError(t, s.Flush(context.Background()))

	snap, _, err := Read(s.Path())
	require.NoError(t, err)
	require.Len(t, snap.Devices, 1)
	assert.Equal(t, uint64(30), snap.Devices[0].TotalBytes)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	s := New(Config{Dir: dir})
	s.Record("A", Rx, 100, 2)
	require.NoError(t, s.Flush(context.Background()))

	// A new process restores the persisted totals and keeps counting.
	s2 := New(Config{Dir: dir})
	require.NoError(t, s2.Load())
	s2.Record("A", Tx, 1, 1)

	c, ok := s2.Get("A")
	require.True(t, ok)
	assert.Equal(t, uint64(100), c.RxBytes)
	assert.Equal(t, uint64(1), c.TxBytes)
	assert.Equal(t, 1, s2.Len())
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Dir: dir})
	assert.NoError(t, s.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644))
	assert.Error(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestFlushCancelled(t *testing.T) {
	s := New(Config{Dir: t.TempDir()})
	s.Record("A", Rx, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Flush(ctx), context.Canceled)
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestAddTimestamps(t *testing.T) {
	s := New(Config{Dir: t.TempDir()})

	t1 := time.Unix(1000, 0)
	t2 := time.Unix(2000, 0)
	s.Add("A", Counters{RxBytes: 1}, t2)
	s.Add("A", Counters{RxBytes: 1}, t1)

	// Late samples with an earlier timestamp move FirstSeen back.
	c, _ := s.Get("A")
	assert.Equal(t, t1, c.FirstSeen)
	assert.Equal(t, t2, c.LastSeen)
}
