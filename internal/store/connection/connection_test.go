package connection

import (
	"context"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ti-mo/bandix/pkg/gate"
)

var (
	tcpFlow = Flow{
		Proto:   unix.IPPROTO_TCP,
		SrcAddr: netip.MustParseAddr("192.168.1.10"),
		SrcPort: 51000,
		DstAddr: netip.MustParseAddr("1.1.1.1"),
		DstPort: 443,
	}
	udpFlow = Flow{
		Proto:   unix.IPPROTO_UDP,
		SrcAddr: netip.MustParseAddr("fd00::10"),
		SrcPort: 5353,
		DstAddr: netip.MustParseAddr("fd00::1"),
		DstPort: 53,
	}
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestFlowString(t *testing.T) {
	assert.Equal(t, "tcp 192.168.1.10:51000 -> 1.1.1.1:443", tcpFlow.String())
	assert.Equal(t, "udp [fd00::10]:5353 -> [fd00::1]:53", udpFlow.String())
	assert.Equal(t, "253", Flow{Proto: 253}.ProtoName())
}

func TestFlushAndRead(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(Config{Dir: dir, Now: (&clock{now}).now})

	assert.True(t, s.Add(tcpFlow, Counters{PacketsOrig: 2, BytesOrig: 100, PacketsRet: 1, BytesRet: 1000}, now))
	assert.True(t, s.Add(tcpFlow, Counters{PacketsOrig: 1, BytesOrig: 50}, now.Add(time.Second)))
	assert.True(t, s.Add(udpFlow, Counters{PacketsOrig: 1, BytesOrig: 60}, now))

	require.NoError(t, s.Flush(context.Background()))

	snap, found, err := Read(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, snap.Flows, 2)
	assert.Equal(t, Name, snap.Header.Store)

	// Ordered by protocol, tcp (6) before udp (17).
	assert.Equal(t, tcpFlow, snap.Flows[0].Flow)
	assert.Equal(t, uint64(150), snap.Flows[0].Counters.BytesOrig)
	assert.Equal(t, uint64(3), snap.Flows[0].Counters.PacketsOrig)
	assert.True(t, snap.Flows[0].Counters.FirstSeen.Equal(now))
	assert.True(t, snap.Flows[0].Counters.LastSeen.Equal(now.Add(time.Second)))
	assert.Equal(t, udpFlow, snap.Flows[1].Flow)

	pts := s.Points()
	require.Len(t, pts, 2)
	assert.Equal(t, "tcp", pts[0].Tags["proto"])
	assert.Equal(t, "443", pts[0].Tags["dst_port"])
	assert.Equal(t, uint64(1150), pts[0].Fields["bytes_total"])
}

func TestRetention(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &clock{start}
	s := New(Config{Dir: t.TempDir(), Retention: time.Hour, Now: c.now})

	s.Add(tcpFlow, Counters{BytesOrig: 1}, start)
	s.Add(udpFlow, Counters{BytesOrig: 1}, start.Add(90*time.Minute))

	c.t = start.Add(2 * time.Hour)
	require.NoError(t, s.Flush(context.Background()))

	// The idle flow was persisted before being pruned.
	assert.Len(t, s.Points(), 2)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get(tcpFlow)
	assert.False(t, ok)
}

func TestAddTimestamps(t *testing.T) {
	s := New(Config{Dir: t.TempDir()})

	t1 := time.Unix(1000, 0)
	t2 := time.Unix(2000, 0)
	s.Add(tcpFlow, Counters{BytesOrig: 1}, t2)
	s.Add(tcpFlow, Counters{BytesOrig: 1}, t1)

	c, ok := s.Get(tcpFlow)
	require.True(t, ok)
	assert.Equal(t, t1, c.FirstSeen)
	assert.Equal(t, t2, c.LastSeen)
}

func TestMaxEntries(t *testing.T) {
	now := time.Now()
	s := New(Config{Dir: t.TempDir(), MaxEntries: 1})

	s.Add(tcpFlow, Counters{BytesOrig: 1}, now)
	s.Add(udpFlow, Counters{BytesOrig: 1}, now.Add(time.Second))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint64(1), s.Evicted())
	_, ok := s.Get(udpFlow)
	assert.True(t, ok)
}

func TestGateRejects(t *testing.T) {
	g := gate.New()
	s := New(Config{Dir: t.TempDir(), Gate: g})

	g.Disable()
	assert.False(t, s.Add(tcpFlow, Counters{BytesOrig: 1}, time.Now()))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(1), s.Dropped())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	s := New(Config{Dir: dir, Retention: -1})
	s.Add(tcpFlow, Counters{BytesOrig: 10}, now)
	require.NoError(t, s.Flush(context.Background()))

	s2 := New(Config{Dir: dir, Retention: -1})
	require.NoError(t, s2.Load())
	s2.Add(tcpFlow, Counters{BytesOrig: 5}, now)

	c, ok := s2.Get(tcpFlow)
	require.True(t, ok)
	assert.Equal(t, uint64(15), c.BytesOrig)

	// Missing file loads as an empty store.
	s3 := New(Config{Dir: t.TempDir()})
	assert.NoError(t, s3.Load())
	assert.Equal(t, 0, s3.Len())
}
