// Package resilience provides circuit breaker and failover primitives for
// speech sources.
//
// Field crews work from sites with unreliable connectivity, so the capture
// server cannot assume its recognizer gateway stays reachable. [Breaker] is a
// three-state circuit breaker (closed → open → half-open) that stops
// hammering a gateway that keeps refusing captures. [Group] composes a
// primary and fallback instances of any value type with one breaker per
// entry, and [SourceFallback] specialises it for [speech.Source] so a
// secondary gateway takes over when the primary trips.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and
// the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrBreakerOpen] until the cooldown
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker].
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// Trip is the number of consecutive failures that opens the breaker.
	// Default: 5.
	Trip int

	// Cooldown is how long the breaker stays open before probing again.
	// Default: 30s.
	Cooldown time.Duration

	// Probes is the call budget in the half-open state. Default: 3.
	Probes int
}

// Breaker is a three-state circuit breaker. The zero value is not usable;
// construct with [NewBreaker].
type Breaker struct {
	name     string
	trip     int
	cooldown time.Duration
	probes   int

	mu         sync.Mutex
	state      State
	failures   int
	lastFail   time.Time
	probeCalls int
	probeFails int
}

// NewBreaker creates a [Breaker]. Zero-value config fields get defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 3
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		cooldown: cfg.Cooldown,
		probes:   cfg.Probes,
		state:    StateClosed,
	}
}

// Do runs fn if the breaker allows it. While open it returns
// [ErrBreakerOpen] without calling fn; while half-open only the probe budget
// may pass.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFail) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = StateHalfOpen
		b.probeCalls = 0
		b.probeFails = 0
		slog.Info("breaker half-open", "name", b.name)

	case StateHalfOpen:
		if b.probeCalls >= b.probes {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}

	probing := b.state == StateHalfOpen
	if probing {
		b.probeCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.lastFail = time.Now()

	if probing {
		// Any probe failure re-opens immediately.
		b.probeFails++
		b.state = StateOpen
		b.failures = b.trip
		slog.Warn("breaker re-opened", "name", b.name)
		return
	}

	b.failures++
	if b.failures >= b.trip {
		b.state = StateOpen
		slog.Warn("breaker opened", "name", b.name, "failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if b.probeCalls-b.probeFails >= b.probes {
			b.state = StateClosed
			b.failures = 0
			b.probeCalls = 0
			b.probeFails = 0
			slog.Info("breaker closed", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State returns the breaker's current state. An open breaker whose cooldown
// has elapsed reports [StateHalfOpen]; the actual transition happens on the
// next [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFail) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probeCalls = 0
	b.probeFails = 0
}
