package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowIsPerKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	k := New(1, 2, time.Minute)
	k.now = func() time.Time { return now }

	assert.True(t, k.Allow("a"))
	assert.True(t, k.Allow("a"))
	assert.False(t, k.Allow("a"))
	assert.True(t, k.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, k.Allow("a"))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	k := New(5, 5, time.Minute)
	k.now = func() time.Time { return now }

	k.Allow("old")
	now = now.Add(2 * time.Minute)
	k.Allow("fresh")

	assert.Equal(t, 1, k.Sweep())
	assert.Equal(t, 1, k.Len())
}
