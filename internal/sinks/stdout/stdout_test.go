package stdout

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInit(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Init(types.SinkConfig{Type: types.StdOut}), errEmptySinkName)

	s = New()
	assert.ErrorIs(t, s.Init(types.SinkConfig{Name: "x", Type: types.Dummy}), errInvalidSinkType)
	assert.False(t, s.IsInit())
}

func TestPush(t *testing.T) {
	var buf syncBuffer

	s := New()
	s.out = &buf
	require.NoError(t, s.Init(types.SinkConfig{Name: "out", Type: types.StdOut}))
	assert.True(t, s.IsInit())

	pts := []types.Point{
		{Measurement: "traffic", Tags: map[string]string{"device": "A"}, Fields: map[string]interface{}{"total_bytes": uint64(60)}, Time: time.Unix(0, 1)},
		{Measurement: "traffic", Tags: map[string]string{"device": "B"}, Fields: map[string]interface{}{"total_bytes": uint64(5)}, Time: time.Unix(0, 2)},
	}
	s.Push("traffic", pts)

	assert.Eventually(t, func() bool {
		return strings.Count(buf.String(), "\n") == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "traffic,device=A total_bytes=60 1\ntraffic,device=B total_bytes=5 2\n", buf.String())
	assert.Equal(t, uint64(2), s.Stats().PointsPushed)
}

func TestPushDropsWhenFull(t *testing.T) {
	s := New()
	s.config = types.SinkConfig{Name: "full"}
	s.points = make(chan types.Point, 1)

	// No worker is draining the channel.
	s.Push("dns", make([]types.Point, 3))

	st := s.Stats()
	assert.Equal(t, uint64(1), st.PointsPushed)
	assert.Equal(t, uint64(2), st.PointsDropped)
}
