package capture

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ti-mo/bandix/internal/store/connection"
	"github.com/ti-mo/bandix/internal/store/dns"
	"github.com/ti-mo/bandix/internal/store/traffic"
	"github.com/ti-mo/bandix/pkg/gate"
)

var mac = trafficKey{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

func trafficPoll(tr *trafficTracker, vals map[trafficKey]trafficValue) {
	tr.begin()
	for k, v := range vals {
		tr.observe(k, v)
	}
	tr.end()
}

func TestTrafficTracker(t *testing.T) {
	s := traffic.New(traffic.Config{Dir: t.TempDir()})
	tr := newTrafficTracker(s)

	// First poll is a baseline.
	trafficPoll(tr, map[trafficKey]trafficValue{mac: {RxBytes: 1000, TxBytes: 500}})
	assert.Equal(t, 0, s.Len())

	trafficPoll(tr, map[trafficKey]trafficValue{mac: {RxBytes: 1060, TxBytes: 505, RxPackets: 1}})
	c, ok := s.Get(mac.String())
	require.True(t, ok)
	assert.Equal(t, uint64(60), c.RxBytes)
	assert.Equal(t, uint64(5), c.TxBytes)

	// Entry was reset in the kernel, new value counts from zero.
	trafficPoll(tr, map[trafficKey]trafficValue{mac: {RxBytes: 10}})
	c, _ = s.Get(mac.String())
	assert.Equal(t, uint64(70), c.RxBytes)

	// Entry disappeared and came back.
	trafficPoll(tr, nil)
	assert.Empty(t, tr.prev)
	trafficPoll(tr, map[trafficKey]trafficValue{mac: {RxBytes: 30}})
	c, _ = s.Get(mac.String())
	assert.Equal(t, uint64(100), c.RxBytes)
}

func TestTrafficTrackerGate(t *testing.T) {
	g := gate.New()
	s := traffic.New(traffic.Config{Dir: t.TempDir(), Gate: g})
	tr := newTrafficTracker(s)

	trafficPoll(tr, nil)
	g.Disable()
	trafficPoll(tr, map[trafficKey]trafficValue{mac: {RxBytes: 10}})

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(1), s.Dropped())
}

func TestConnTracker(t *testing.T) {
	s := connection.New(connection.Config{Dir: t.TempDir()})
	tr := newConnTracker(s)

	f := connection.Flow{
		Proto:   unix.IPPROTO_UDP,
		SrcAddr: netip.MustParseAddr("10.0.0.2"),
		SrcPort: 5000,
		DstAddr: netip.MustParseAddr("10.0.0.1"),
		DstPort: 53,
	}

	poll := func(v connValue) {
		tr.begin()
		tr.observe(f, v)
		tr.end()
	}

	poll(connValue{BytesOrig: 10})
	poll(connValue{BytesOrig: 10})
	assert.Equal(t, 0, s.Len(), "no change since baseline")

	poll(connValue{BytesOrig: 70, BytesRet: 100, PacketsOrig: 2, PacketsRet: 1})
	c, ok := s.Get(f)
	require.True(t, ok)
	assert.Equal(t, uint64(60), c.BytesOrig)
	assert.Equal(t, uint64(100), c.BytesRet)
}

func TestDNSHandle(t *testing.T) {
	s := dns.New(dns.Config{Dir: t.TempDir()})
	d := &DNSReader{s: s, gate: gate.New()}

	b := make([]byte, dnsEventLength)
	copy(b[8:12], []byte{10, 0, 0, 2})
	b[24] = unix.AF_INET
	binary.NativeEndian.PutUint16(b[28:], 1)
	binary.NativeEndian.PutUint16(b[30:], 11)
	copy(b[32:], "example.com")

	d.handle(b)
	d.handle(b[:10])

	require.Equal(t, 1, s.Len())
	q := s.Queries()[0]
	assert.Equal(t, "example.com.", q.Name)
	assert.Equal(t, "10.0.0.2", q.Client)
	assert.Equal(t, "A", q.Type)
	assert.Equal(t, uint64(1), q.Count)
}
