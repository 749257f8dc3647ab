package dummy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

func TestDummy(t *testing.T) {
	d := New()
	require.NoError(t, d.Init(types.SinkConfig{Name: "void", Stores: []string{"dns"}}))

	assert.True(t, d.IsInit())
	assert.Equal(t, "void", d.Name())
	assert.True(t, d.WantStore("dns"))
	assert.False(t, d.WantStore("traffic"))

	d.Push("dns", make([]types.Point, 3))

	s := d.Stats()
	assert.Equal(t, uint64(3), s.PointsPushed)
	assert.Equal(t, uint64(3), s.PointsDropped)
}
