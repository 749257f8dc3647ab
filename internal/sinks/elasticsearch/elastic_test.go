package elasticsearch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

func TestNewEvent(t *testing.T) {
	p := types.Point{
		Measurement: "connection",
		Tags:        map[string]string{"proto": "tcp", "dst_port": "443"},
		Fields:      map[string]interface{}{"bytes_total": uint64(1150)},
		Time:        time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
	}

	e := newEvent("bandix", "router", p)

	assert.Equal(t, "bandix-2024.01.31", e.index)
	assert.Equal(t, "connection", e.doc["measurement"])
	assert.Equal(t, "router", e.doc["agent"])
	assert.Equal(t, "tcp", e.doc["proto"])
	assert.Equal(t, uint64(1150), e.doc["bytes_total"])
	assert.Equal(t, p.Time.UnixMilli(), e.doc["timestamp"])
}

func TestBatchWatermark(t *testing.T) {
	s := New()
	s.config = types.SinkConfig{Name: "es", BatchSize: 2, Database: "bandix"}
	s.sendChan = make(chan batch, 1)
	s.newBatch()

	s.Push("traffic", make([]types.Point, 2))
	require.Len(t, s.sendChan, 1)
	assert.Len(t, <-s.sendChan, 2)

	// Queue is full, the next full batch is dropped.
	s.sendChan = make(chan batch)
	s.Push("traffic", make([]types.Point, 2))
	assert.Equal(t, uint64(1), s.Stats().BatchesDropped)
	assert.Equal(t, uint64(4), s.Stats().PointsPushed)
}
