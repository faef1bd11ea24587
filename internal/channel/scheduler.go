package channel

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// jitterFactor is the maximum fraction of the backoff delay added as jitter
// to avoid synchronized retry storms across many clients.
const jitterFactor = 0.3

// backoffDelay computes the reconnect delay for a zero-based attempt index:
// min(base * 2^attempt, max), plus jitter drawn from [0, jitterFactor*delay).
// The result never exceeds max. jitter yields a value in [0, 1).
func backoffDelay(attempt int, base, max time.Duration, jitter func() float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	raw := float64(base) * math.Pow(2, float64(attempt))
	if raw > float64(max) {
		raw = float64(max)
	}
	delay := raw + jitter()*jitterFactor*raw
	if delay > float64(max) {
		delay = float64(max)
	}
	return time.Duration(delay)
}

// scheduler decides when the next connection attempt may run: exponential
// backoff with jitter, a minimum inter-attempt spacing, and a circuit breaker
// that opens after too many consecutive failures.
type scheduler struct {
	base        time.Duration
	max         time.Duration
	minSpacing  time.Duration
	cooldown    time.Duration
	maxAttempts int
	jitter      func() float64
	now         func() time.Time

	mu          sync.Mutex
	attempts    int
	lastAttempt time.Time
	breakerOpen bool
	breakerAt   time.Time
}

func newScheduler(base, max, minSpacing, cooldown time.Duration, maxAttempts int) *scheduler {
	return &scheduler{
		base:        base,
		max:         max,
		minSpacing:  minSpacing,
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
		jitter:      rand.Float64,
		now:         time.Now,
	}
}

// allow reports whether a connection attempt may proceed. While the breaker
// is open and the cooldown has not expired, attempts short-circuit. The first
// attempt after the cooldown closes the breaker and resets the counter.
func (s *scheduler) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.breakerOpen {
		return true
	}
	if s.now().Sub(s.breakerAt) < s.cooldown {
		return false
	}
	s.breakerOpen = false
	s.attempts = 0
	return true
}

// markAttempt records the start of a connection attempt for spacing.
func (s *scheduler) markAttempt() {
	s.mu.Lock()
	s.lastAttempt = s.now()
	s.mu.Unlock()
}

// spacingWait returns how long a caller must wait before dialing so that
// attempts are at least minSpacing apart, regardless of backoff state.
func (s *scheduler) spacingWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastAttempt.IsZero() {
		return 0
	}
	elapsed := s.now().Sub(s.lastAttempt)
	if elapsed >= s.minSpacing {
		return 0
	}
	return s.minSpacing - elapsed
}

// failure records a consecutive connection failure. It returns the delay
// before the next attempt, or circuitOpen=true once the attempt cap is
// exceeded and the breaker opens.
func (s *scheduler) failure() (delay time.Duration, circuitOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.attempts >= s.maxAttempts {
		s.breakerOpen = true
		s.breakerAt = s.now()
		return 0, true
	}

	delay = backoffDelay(s.attempts-1, s.base, s.max, s.jitter)
	if delay < s.minSpacing {
		delay = s.minSpacing
	}
	return delay, false
}

// reset clears the failure counter and closes the breaker. Called when a
// transport opens or the caller forces a fresh reconnect.
func (s *scheduler) reset() {
	s.mu.Lock()
	s.attempts = 0
	s.breakerOpen = false
	s.mu.Unlock()
}

func (s *scheduler) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
