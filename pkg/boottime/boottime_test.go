package boottime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var window = 10 * time.Millisecond

func TestEstimate(t *testing.T) {
	e, err := Estimate()
	require.NoError(t, err)

	// Boot time should be before now.
	assert.True(t, e.Before(time.Now()))

	mono, err := monotonic()
	require.NoError(t, err)

	testWindow(t, e.Add(mono), window)
}

func TestAbsolute(t *testing.T) {
	mono, err := monotonic()
	require.NoError(t, err)

	testWindow(t, Absolute(uint64(mono)), window)
}

// testWindow tests if ts falls between time.Now() plus and minus w.
func testWindow(t *testing.T, ts time.Time, w time.Duration) {
	now := time.Now()

	assert.True(t, ts.After(now.Add(-w)), "timestamp too far in the past")
	assert.True(t, ts.Before(now.Add(w)), "timestamp too far in the future")
}
