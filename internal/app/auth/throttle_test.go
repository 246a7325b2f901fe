package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_BlocksAfterThreshold(t *testing.T) {
	th := NewThrottle(ThrottleConfig{MaxAttempts: 3, BlockWindow: time.Minute})
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 2; i++ {
		_, blocked := th.Check("vip", "1.1.1.1", now)
		assert.False(t, blocked)
		th.Fail("vip", "1.1.1.1", now)
	}
	assert.Equal(t, 2, th.Failures("vip", "1.1.1.1"))

	th.Fail("vip", "1.1.1.1", now)
	assert.Equal(t, 0, th.Failures("vip", "1.1.1.1"), "counter resets when the block starts")

	left, blocked := th.Check("vip", "1.1.1.1", now.Add(10*time.Second))
	assert.True(t, blocked)
	assert.Equal(t, 50*time.Second, left)

	_, blocked = th.Check("vip", "2.2.2.2", now)
	assert.False(t, blocked, "other ip unaffected")
	_, blocked = th.Check("lobby", "1.1.1.1", now)
	assert.False(t, blocked, "other room unaffected")

	_, blocked = th.Check("vip", "1.1.1.1", now.Add(time.Minute))
	assert.False(t, blocked, "block expires")
}

func TestThrottle_SuccessResets(t *testing.T) {
	th := NewThrottle(ThrottleConfig{MaxAttempts: 3, BlockWindow: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	th.Fail("vip", "1.1.1.1", now)
	th.Fail("vip", "1.1.1.1", now)
	th.Succeed("vip", "1.1.1.1", now)
	th.Fail("vip", "1.1.1.1", now)

	_, blocked := th.Check("vip", "1.1.1.1", now)
	assert.False(t, blocked)
	assert.Equal(t, 1, th.Failures("vip", "1.1.1.1"))
}

func TestThrottle_PurgesStaleEntries(t *testing.T) {
	th := NewThrottle(ThrottleConfig{MaxAttempts: 5, BlockWindow: time.Minute, Retention: time.Hour})
	now := time.Unix(1_700_000_000, 0)
	th.Fail("vip", "1.1.1.1", now)
	th.Fail("vip", "1.1.1.1", now)

	th.Check("vip", "9.9.9.9", now.Add(2*time.Hour))
	assert.Equal(t, 0, th.Failures("vip", "1.1.1.1"))
}

func TestThrottle_PendingAttemptsCount(t *testing.T) {
	th := NewThrottle(ThrottleConfig{MaxAttempts: 3, BlockWindow: time.Minute})
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		_, blocked := th.Check("vip", "1.1.1.1", now)
		require.False(t, blocked)
	}
	left, blocked := th.Check("vip", "1.1.1.1", now)
	assert.True(t, blocked, "no slot left while three attempts are pending")
	assert.Zero(t, left)

	th.Release("vip", "1.1.1.1")
	_, blocked = th.Check("vip", "1.1.1.1", now)
	assert.False(t, blocked, "released slot is reusable")

	th.Fail("vip", "1.1.1.1", now)
	th.Fail("vip", "1.1.1.1", now)
	th.Fail("vip", "1.1.1.1", now)
	left, blocked = th.Check("vip", "1.1.1.1", now)
	assert.True(t, blocked)
	assert.Equal(t, time.Minute, left)
}
