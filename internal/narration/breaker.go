package narration

import (
	"sync"
	"time"

	"github.com/equinology/waleed/internal/clock"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// breaker suspends synthesis after repeated backend failures, so an
// unreachable backend is not called for every line. After retryAfter one
// trial request is let through; its outcome closes or reopens the
// breaker.
type breaker struct {
	clock      clock.Clock
	threshold  int
	retryAfter time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
}

func newBreaker(c clock.Clock, threshold int, retryAfter time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &breaker{clock: c, threshold: threshold, retryAfter: retryAfter}
}

// allow reports whether a synthesis should be attempted.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.clock.Now().Sub(b.lastFailure) >= b.retryAfter {
			b.state = breakerHalfOpen
			return true
		}
		return false
	case breakerHalfOpen:
		// One trial at a time.
		return false
	default:
		return true
	}
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = breakerClosed
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.clock.Now()
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.state = breakerOpen
	}
}

// abandon releases a half-open trial that was cancelled before it
// produced a result.
func (b *breaker) abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
