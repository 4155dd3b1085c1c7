package infra

import (
	"errors"
	"testing"
	"time"

	"crypto_dash/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(failures, successes int, timeout time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: failures,
		SuccessThreshold: successes,
		Timeout:          timeout,
	})
	cb.now = clock.Now
	return cb, clock
}

func TestCircuitBreaker_AllowInClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	if !cb.Allow() {
		t.Error("Expected Allow() to return true in CLOSED state")
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state CLOSED, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, 1, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Error("Should still be CLOSED after 2 failures")
	}

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Errorf("Expected OPEN after 3 failures, got %s", cb.GetState())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_HalfOpenThenClosed(t *testing.T) {
	cb, clock := newTestBreaker(2, 2, 30*time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatal("Expected OPEN state")
	}

	clock.Advance(30 * time.Second)
	if !cb.Allow() {
		t.Fatal("Expected Allow() after timeout")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected HALF_OPEN, got %s", cb.GetState())
	}

	cb.RecordSuccess()
	if cb.GetState() != StateHalfOpen {
		t.Error("Should still be HALF_OPEN after 1 success")
	}
	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Errorf("Expected CLOSED after 2 successes, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, 1, time.Second)

	cb.RecordFailure()
	clock.Advance(time.Second)
	cb.Allow()
	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Errorf("Expected OPEN after failed probe, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_Do(t *testing.T) {
	notFound := errors.New("not found")
	boom := errors.New("boom")
	ignoreNotFound := func(err error) bool { return !errors.Is(err, notFound) }

	t.Run("classifier keeps breaker closed", func(t *testing.T) {
		cb, _ := newTestBreaker(1, 1, time.Minute)
		err := cb.Do(func() error { return notFound }, ignoreNotFound)
		if !errors.Is(err, notFound) {
			t.Fatalf("expected passthrough error, got %v", err)
		}
		if cb.GetState() != StateClosed {
			t.Errorf("expected CLOSED, got %s", cb.GetState())
		}
	})

	t.Run("open breaker short-circuits", func(t *testing.T) {
		cb, _ := newTestBreaker(1, 1, time.Minute)
		_ = cb.Do(func() error { return boom }, ignoreNotFound)

		called := false
		err := cb.Do(func() error { called = true; return nil }, ignoreNotFound)
		if called {
			t.Error("fn must not run while OPEN")
		}
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	if cb.GetState() != StateOpen {
		t.Fatal("Expected OPEN state")
	}

	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("Expected CLOSED after Reset, got %s", cb.GetState())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to return true after Reset")
	}
}
