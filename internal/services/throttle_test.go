package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryThrottle(t *testing.T) {
	throttle := NewMemoryThrottle(3 * time.Second)
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, throttle.Allow("u1:e1", start))
	assert.False(t, throttle.Allow("u1:e1", start.Add(time.Second)))
	assert.False(t, throttle.Allow("u1:e1", start.Add(2*time.Second)))
	assert.True(t, throttle.Allow("u1:e1", start.Add(4*time.Second)))

	// Keys are independent
	assert.True(t, throttle.Allow("u1:e2", start.Add(4*time.Second)))
	assert.True(t, throttle.Allow("u2:e1", start.Add(4*time.Second)))
}

func TestMemoryThrottlePrune(t *testing.T) {
	throttle := NewMemoryThrottle(3 * time.Second)
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	throttle.Allow("idle", start)
	throttle.Allow("busy", start.Add(59*time.Second))
	assert.Equal(t, 2, throttle.Len())

	removed := throttle.Prune(start.Add(time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, throttle.Len())

	assert.False(t, throttle.Allow("busy", start.Add(time.Minute)))
	assert.True(t, throttle.Allow("idle", start.Add(time.Minute)))
}

func TestMemoryThrottleRelease(t *testing.T) {
	throttle := NewMemoryThrottle(3 * time.Second)
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, throttle.Allow("u1:e1", start))
	throttle.Release("u1:e1")
	assert.True(t, throttle.Allow("u1:e1", start.Add(time.Second)))
	assert.False(t, throttle.Allow("u1:e1", start.Add(2*time.Second)))
}
