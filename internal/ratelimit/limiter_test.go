package ratelimit_test

import (
	"testing"
	"time"

	"github.com/habiliai/personachat/internal/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestPoolRejectsBurst(t *testing.T) {
	p := ratelimit.NewPool(0.001, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, p.Allow("alice"), "request %d", i)
	}
	assert.False(t, p.Allow("alice"))

	// keys do not share buckets
	assert.True(t, p.Allow("bob"))
}

func TestPoolDefaults(t *testing.T) {
	p := ratelimit.NewPool(0, 0)

	allowed := 0
	for i := 0; i < 20; i++ {
		if p.Allow("k") {
			allowed++
		}
	}
	assert.GreaterOrEqual(t, allowed, 10)
	assert.Less(t, allowed, 20)
}

func TestPoolEvictsIdleKeys(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := ratelimit.NewPool(0.001, 1,
		ratelimit.WithIdleTTL(time.Minute),
		ratelimit.WithClock(func() time.Time { return now }),
	)

	assert.True(t, p.Allow("alice"))
	assert.True(t, p.Allow("bob"))
	assert.False(t, p.Allow("alice"))
	assert.Equal(t, 2, p.Len())

	now = now.Add(30 * time.Second)
	assert.False(t, p.Allow("alice"))

	// bob has been idle for a full TTL, alice only for half of it
	now = now.Add(45 * time.Second)
	assert.True(t, p.Allow("carol"))
	assert.Equal(t, 2, p.Len())

	// an evicted key starts over with a full bucket
	assert.True(t, p.Allow("bob"))
}
