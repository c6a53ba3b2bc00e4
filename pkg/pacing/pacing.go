package pacing

import (
	"math/rand"
	"sync"
	"time"
)

// Pacer yields the next pause in a sequence of paced actions
type Pacer interface {
	Next() time.Duration
}

// Fixed always returns the same pause
type Fixed time.Duration

// Next returns the fixed pause
func (f Fixed) Next() time.Duration { return time.Duration(f) }

// Jitter returns uniformly random pauses in [min, max]
type Jitter struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitter creates a jittered pacer; swapped bounds are reordered
func NewJitter(min, max time.Duration) *Jitter {
	return NewJitterWithSource(min, max, rand.NewSource(time.Now().UnixNano()))
}

// NewJitterWithSource is NewJitter with a caller supplied random source
func NewJitterWithSource(min, max time.Duration, src rand.Source) *Jitter {
	if max < min {
		min, max = max, min
	}
	return &Jitter{min: min, max: max, rng: rand.New(src)}
}

// Next returns a pause between min and max inclusive
func (j *Jitter) Next() time.Duration {
	span := j.max - j.min
	if span <= 0 {
		return j.min
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.min + time.Duration(j.rng.Int63n(int64(span)+1))
}

// Bounds reports the configured range
func (j *Jitter) Bounds() (time.Duration, time.Duration) {
	return j.min, j.max
}
