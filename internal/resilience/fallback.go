package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAllFailed is returned when every entry in a [Group] fails or has an
// open breaker.
var ErrAllFailed = errors.New("all entries failed")

// GroupConfig configures the per-entry breaker created for each member of a
// [Group].
type GroupConfig struct {
	Breaker BreakerConfig
}

// entry pairs a value with its dedicated breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Group wraps a primary and zero or more fallback instances of the same
// type. When the primary fails, or its breaker is open, the next healthy
// fallback is tried in registration order.
//
// Group is safe for concurrent use once assembly via [Group.Add] is done.
type Group[T any] struct {
	mu      sync.RWMutex
	entries []entry[T]
	cfg     GroupConfig
}

// NewGroup creates a [Group] with primary as the first entry.
func NewGroup[T any](primary T, name string, cfg GroupConfig) *Group[T] {
	bc := cfg.Breaker
	bc.Name = name
	return &Group[T]{
		entries: []entry[T]{{name: name, value: primary, breaker: NewBreaker(bc)}},
		cfg:     cfg,
	}
}

// Add appends a fallback entry. Fallbacks are tried in the order added,
// after the primary.
func (g *Group[T]) Add(name string, value T) {
	bc := g.cfg.Breaker
	bc.Name = name
	g.mu.Lock()
	g.entries = append(g.entries, entry[T]{name: name, value: value, breaker: NewBreaker(bc)})
	g.mu.Unlock()
}

// Do tries fn against each entry in order until one succeeds. Entries with
// an open breaker are skipped. When every entry fails the last error is
// wrapped in [ErrAllFailed].
func (g *Group[T]) Do(fn func(T) error) error {
	_, err := DoWithResult(g, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// DoWithResult tries fn against each entry until one succeeds and returns
// its result. A package-level function because Go methods cannot introduce
// type parameters.
func DoWithResult[T, R any](g *Group[T], fn func(T) (R, error)) (R, error) {
	g.mu.RLock()
	entries := g.entries
	g.mu.RUnlock()

	var (
		lastErr error
		zero    R
	)
	for i := range entries {
		e := &entries[i]
		var result R
		err := e.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(e.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping entry, breaker open", "entry", e.name)
		} else {
			slog.Warn("entry failed, trying next", "entry", e.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
