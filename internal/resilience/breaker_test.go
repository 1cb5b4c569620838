package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 2})
	for i := 0; i < 10; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Do = %v, want errBoom", err)
		}
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	// Calls are now rejected without running fn.
	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Do = %v, want ErrBreakerOpen", err)
	}
	if called {
		t.Error("fn was called while the breaker was open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 3, Cooldown: time.Hour})

	// Two failures, then a success, then two more failures: never trips.
	for _, fail := range []bool{true, true, false, true, true} {
		_ = b.Do(func() error {
			if fail {
				return errBoom
			}
			return nil
		})
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, Cooldown: 10 * time.Millisecond, Probes: 1})

	_ = b.Do(func() error { return errBoom })
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}

	// A successful probe closes the breaker.
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, Cooldown: 10 * time.Millisecond, Probes: 1})

	_ = b.Do(func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe = %v, want errBoom", err)
	}
	if got := b.State(); got != StateOpen {
		t.Errorf("state = %v, want open after failed probe", got)
	}
}

func TestBreaker_ResetClosesImmediately(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", Trip: 1, Cooldown: time.Hour})
	_ = b.Do(func() error { return errBoom })
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	b.Reset()
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %v, want closed after Reset", got)
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("Do after Reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}
