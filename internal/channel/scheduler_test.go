package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_NoJitter(t *testing.T) {
	noJitter := func() float64 { return 0 }

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"attempt 0 is base", 0, 3 * time.Second},
		{"attempt 1 doubles", 1, 6 * time.Second},
		{"attempt 2 doubles again", 2, 12 * time.Second},
		{"attempt 4 capped at max", 4, 48 * time.Second},
		{"attempt 5 hits cap", 5, 60 * time.Second},
		{"attempt 30 stays at cap", 30, 60 * time.Second},
		{"negative attempt treated as zero", -1, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backoffDelay(tt.attempt, 3*time.Second, 60*time.Second, noJitter)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackoffDelay_JitterBounds(t *testing.T) {
	fullJitter := func() float64 { return 0.999999 }

	// attempt 0: [3000, 3900) ms
	got := backoffDelay(0, 3*time.Second, 60*time.Second, fullJitter)
	assert.GreaterOrEqual(t, got, 3000*time.Millisecond)
	assert.Less(t, got, 3900*time.Millisecond)

	// attempt 1: [6000, 7800) ms
	got = backoffDelay(1, 3*time.Second, 60*time.Second, fullJitter)
	assert.GreaterOrEqual(t, got, 6000*time.Millisecond)
	assert.Less(t, got, 7800*time.Millisecond)

	// jitter never pushes past the cap
	for attempt := 0; attempt < 40; attempt++ {
		got = backoffDelay(attempt, 3*time.Second, 60*time.Second, fullJitter)
		assert.LessOrEqual(t, got, 60*time.Second, "attempt %d", attempt)
	}
}

func TestScheduler_FailureDelaysAndSpacing(t *testing.T) {
	s := newScheduler(time.Millisecond, 4*time.Millisecond, 50*time.Millisecond, time.Minute, 10)
	s.jitter = func() float64 { return 0 }

	// Backoff below the minimum spacing is raised to it.
	delay, open := s.failure()
	assert.False(t, open)
	assert.Equal(t, 50*time.Millisecond, delay)
}

func TestScheduler_BreakerOpensAtCap(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := newScheduler(time.Millisecond, time.Second, 0, 5*time.Minute, 3)
	s.jitter = func() float64 { return 0 }
	s.now = func() time.Time { return now }

	_, open := s.failure()
	assert.False(t, open)
	_, open = s.failure()
	assert.False(t, open)
	_, open = s.failure()
	assert.True(t, open, "third consecutive failure should open the breaker")

	// Breaker short-circuits attempts until the cooldown expires.
	assert.False(t, s.allow())
	now = now.Add(4 * time.Minute)
	assert.False(t, s.allow())
	now = now.Add(2 * time.Minute)
	assert.True(t, s.allow(), "cooldown expired, next attempt allowed")
	assert.Equal(t, 0, s.attemptCount(), "attempt counter resets after cooldown")
}

func TestScheduler_ResetClosesBreaker(t *testing.T) {
	s := newScheduler(time.Millisecond, time.Second, 0, time.Hour, 1)
	_, open := s.failure()
	assert.True(t, open)
	assert.False(t, s.allow())

	s.reset()
	assert.True(t, s.allow())
	assert.Equal(t, 0, s.attemptCount())
}

func TestScheduler_SpacingWait(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := newScheduler(time.Second, time.Minute, time.Second, time.Minute, 10)
	s.now = func() time.Time { return now }

	assert.Equal(t, time.Duration(0), s.spacingWait(), "no prior attempt")

	s.markAttempt()
	assert.Equal(t, time.Second, s.spacingWait())

	now = now.Add(400 * time.Millisecond)
	assert.Equal(t, 600*time.Millisecond, s.spacingWait())

	now = now.Add(700 * time.Millisecond)
	assert.Equal(t, time.Duration(0), s.spacingWait())
}
