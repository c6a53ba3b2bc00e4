package pacing

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitterStaysInBounds(t *testing.T) {
	j := NewJitterWithSource(50*time.Millisecond, 150*time.Millisecond, rand.NewSource(1))

	seen := map[time.Duration]bool{}
	for i := 0; i < 500; i++ {
		d := j.Next()
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestJitterSwappedAndDegenerateBounds(t *testing.T) {
	j := NewJitter(2*time.Second, time.Second)
	min, max := j.Bounds()
	assert.Equal(t, time.Second, min)
	assert.Equal(t, 2*time.Second, max)

	same := NewJitter(time.Second, time.Second)
	assert.Equal(t, time.Second, same.Next())
}

func TestJitterConcurrentUse(t *testing.T) {
	j := NewJitter(0, time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				j.Next()
			}
		}()
	}
	wg.Wait()
}

func TestFixed(t *testing.T) {
	assert.Equal(t, 3*time.Second, Fixed(3*time.Second).Next())
}
