// Package circuit provides a minimal circuit breaker for publishers talking
// to flaky downstream transports.
package circuit

import (
	"sync"
	"time"
)

// Breaker prevents thundering herd on downstream outages. After threshold
// consecutive failures the circuit opens and callers skip the operation until
// the cooldown expires; the first call after that probes the downstream again.
type Breaker struct {
	mu sync.RWMutex

	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
	open      bool
}

// New creates a breaker. threshold is the number of consecutive failures that
// opens the circuit; cooldown is how long it stays open.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether the operation should be attempted. An open circuit
// whose cooldown has expired closes and lets the call through as a probe.
func (b *Breaker) Allow() bool {
	b.mu.RLock()
	if !b.open {
		b.mu.RUnlock()
		return true
	}
	expired := time.Now().After(b.openUntil)
	b.mu.RUnlock()

	if !expired {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open && time.Now().After(b.openUntil) {
		b.open = false
		b.failures = 0
	}
	return !b.open
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure counts a failure, opening the circuit at the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openUntil = time.Now().Add(b.cooldown)
	}
}

// IsOpen reports whether the circuit is currently open.
func (b *Breaker) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open
}

// Reset manually closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}
