package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_Frozen(t *testing.T) {
	clock := NewFixedClock(1000, 0)

	assert.Equal(t, int64(1000), clock.Now())
	assert.Equal(t, int64(1000), clock.Now())
}

func TestFixedClock_Steps(t *testing.T) {
	clock := NewFixedClock(1000, time.Second)

	assert.Equal(t, int64(1000), clock.Now())
	assert.Equal(t, int64(2000), clock.Now())
	assert.Equal(t, int64(3000), clock.Peek())
	assert.Equal(t, int64(3000), clock.Now())
}

func TestFixedClock_AdvanceAndSet(t *testing.T) {
	clock := NewFixedClock(0, 0)

	clock.Advance(90 * time.Second)
	assert.Equal(t, int64(90_000), clock.Now())

	clock.Set(5)
	assert.Equal(t, int64(5), clock.Now())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	clock := NewFixedClock(0, time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	seen := make(chan int64, numGoroutines*callsPerGoroutine)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		unique[v] = true
	}
	assert.Len(t, unique, numGoroutines*callsPerGoroutine)
	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), clock.Peek())
}
