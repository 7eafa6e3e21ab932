package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		ResetTimeout:     time.Minute,
	})

	failing := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), failing); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	err := cb.Execute(context.Background(), failing)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open", cb.GetState())
	}
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
		ResetTimeout:     time.Minute,
	})

	cb.Execute(context.Background(), func() error { return errors.New("boom") })
	if cb.GetState() != StateClosed {
		// transition happens on next Execute
		t.Logf("state after failure: %v", cb.GetState())
	}

	// trip the breaker
	if err := cb.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// half-open lets a probe through
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("expected closed breaker, got %v", err)
	}
}
