package evidence

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// circuitState mirrors pkg/util/resiliency.CircuitBreaker's three-state
// machine, adapted here to be keyed per (provider_id, check_id) rather
// than held as a single named breaker, and to gate provider dispatch
// instead of outbound HTTP calls.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

type circuitBreaker struct {
	mu           sync.Mutex
	state        circuitState
	failureCount int
	threshold    int
	lastFailure  time.Time
	resetTimeout time.Duration
}

func newCircuitBreaker(threshold int, resetTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, resetTimeout: resetTimeout}
}

func (cb *circuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == circuitOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	}
	return true
}

func (cb *circuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = circuitClosed
	cb.failureCount = 0
}

func (cb *circuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailure = time.Now()
	if cb.failureCount >= cb.threshold {
		cb.state = circuitOpen
	}
}

// DispatchLimiter bounds provider call rate and trips a per-(provider_id,
// check_id) circuit breaker on repeated failure. The zero value is not
// usable; use NewDispatchLimiter.
type DispatchLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	breakers   map[string]*circuitBreaker
	ratePerSec float64
	burst      int
	threshold  int
	resetAfter time.Duration
}

func NewDispatchLimiter(ratePerSec float64, burst, failureThreshold int, resetAfter time.Duration) *DispatchLimiter {
	return &DispatchLimiter{
		limiters:   make(map[string]*rate.Limiter),
		breakers:   make(map[string]*circuitBreaker),
		ratePerSec: ratePerSec,
		burst:      burst,
		threshold:  failureThreshold,
		resetAfter: resetAfter,
	}
}

func (d *DispatchLimiter) key(providerID, checkID string) string { return providerID + "/" + checkID }

// Allow reports whether a dispatch to (providerID, checkID) may proceed:
// both the token bucket has budget and the circuit is not open.
func (d *DispatchLimiter) Allow(providerID, checkID string) bool {
	d.mu.Lock()
	k := d.key(providerID, checkID)
	lim, ok := d.limiters[k]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(d.ratePerSec), d.burst)
		d.limiters[k] = lim
	}
	cb, ok := d.breakers[k]
	if !ok {
		cb = newCircuitBreaker(d.threshold, d.resetAfter)
		d.breakers[k] = cb
	}
	d.mu.Unlock()

	return cb.Allow() && lim.Allow()
}

func (d *DispatchLimiter) RecordSuccess(providerID, checkID string) {
	d.mu.Lock()
	cb := d.breakers[d.key(providerID, checkID)]
	d.mu.Unlock()
	if cb != nil {
		cb.Success()
	}
}

func (d *DispatchLimiter) RecordFailure(providerID, checkID string) {
	d.mu.Lock()
	cb := d.breakers[d.key(providerID, checkID)]
	d.mu.Unlock()
	if cb != nil {
		cb.Failure()
	}
}
