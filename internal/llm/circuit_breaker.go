package llm

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// CircuitBreaker short-circuits provider calls after repeated consecutive
// failures. After a cooldown it admits a small number of trial calls
// (half-open) before fully closing again.
type CircuitBreaker struct {
	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	trials   int

	threshold   int
	cooldown    time.Duration
	halfOpenMax int
	now         func() time.Time
}

// NewCircuitBreaker builds a breaker with the given consecutive-failure
// threshold, cooldown window, and half-open trial budget.
func NewCircuitBreaker(threshold int, cooldown time.Duration, halfOpenTrials int) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if halfOpenTrials <= 0 {
		halfOpenTrials = 2
	}
	return &CircuitBreaker{
		threshold:   threshold,
		cooldown:    cooldown,
		halfOpenMax: halfOpenTrials,
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed right now.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if c.now().Sub(c.openedAt) < c.cooldown {
			return false
		}
		c.state = breakerHalfOpen
		c.trials = 1
		return true
	default: // half-open
		if c.trials >= c.halfOpenMax {
			return false
		}
		c.trials++
		return true
	}
}

// OnSuccess closes the breaker and clears the failure streak.
func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = breakerClosed
	c.failures = 0
	c.trials = 0
}

// OnFailure records a failed call. A half-open failure reopens immediately;
// a closed breaker opens once the streak reaches the threshold.
func (c *CircuitBreaker) OnFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.state == breakerHalfOpen || c.failures >= c.threshold {
		c.state = breakerOpen
		c.openedAt = c.now()
		c.trials = 0
	}
}
