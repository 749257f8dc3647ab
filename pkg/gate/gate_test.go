package gate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate(t *testing.T) {
	g := New()
	assert.True(t, g.Enabled(), "new gate")

	assert.True(t, g.Disable(), "first disable")
	assert.False(t, g.Enabled(), "after disable")

	assert.False(t, g.Disable(), "second disable")
	assert.False(t, g.Enabled(), "after second disable")
}

func TestGateConcurrentDisable(t *testing.T) {
	g := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Disable() {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transitions)
	assert.False(t, g.Enabled())
}
