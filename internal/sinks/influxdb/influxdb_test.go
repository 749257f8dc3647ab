package influxdb

import (
	"testing"
	"time"

	influx "github.com/influxdata/influxdb/client/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

func TestInitValidation(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Init(types.SinkConfig{Type: types.InfluxUDP}), errEmptySinkName)
	assert.ErrorIs(t, s.Init(types.SinkConfig{Name: "i", Type: types.InfluxUDP}), errEmptySinkAddress)
	assert.ErrorIs(t, s.Init(types.SinkConfig{Name: "i", Address: "http://localhost:8086", Type: types.InfluxHTTP}), errEmptySinkDatabase)
	assert.ErrorIs(t, s.Init(types.SinkConfig{Name: "i", Address: "localhost:8089", Type: types.StdOut}), errInvalidSinkType)
	assert.False(t, s.IsInit())
}

func TestToInflux(t *testing.T) {
	ts := time.Unix(10, 0)
	pt, err := toInflux(types.Point{
		Measurement: "traffic",
		Tags:        map[string]string{"device": "A"},
		Fields:      map[string]interface{}{"total_bytes": uint64(60), "hostname": "laptop"},
		Time:        ts,
	})
	require.NoError(t, err)

	assert.Equal(t, "traffic", pt.Name())
	assert.Equal(t, map[string]string{"device": "A"}, pt.Tags())

	f, err := pt.Fields()
	require.NoError(t, err)
	assert.Equal(t, int64(60), f["total_bytes"])
	assert.True(t, pt.Time().Equal(ts))
}

func TestBatching(t *testing.T) {
	s := New()
	s.config = types.SinkConfig{Name: "i", BatchSize: 2}
	s.sendChan = make(chan influx.BatchPoints, 1)
	s.newBatch()

	pts := []types.Point{
		{Measurement: "dns", Fields: map[string]interface{}{"count": uint64(1)}},
		{Measurement: "dns", Fields: map[string]interface{}{"count": uint64(2)}},
		{Measurement: "dns", Fields: map[string]interface{}{"count": uint64(3)}},
	}
	s.Push("dns", pts)

	// Watermark of 2 points queued one batch, the third point remains.
	require.Len(t, s.sendChan, 1)
	assert.Len(t, (<-s.sendChan).Points(), 2)
	assert.Len(t, s.batch.Points(), 1)
	assert.Equal(t, uint64(3), s.Stats().PointsPushed)
}
