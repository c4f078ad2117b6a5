package limiter

import (
	"context"
	"testing"
	"time"
)

func TestScope_NormalExecutionCompletes(t *testing.T) {
	err := Scope(context.Background(), 5*time.Second, 0, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScope_TimeoutRaisesError(t *testing.T) {
	err := Scope(context.Background(), 50*time.Millisecond, 0, func(ctx context.Context) error {
		time.Sleep(500 * time.Millisecond)
		return nil
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	le, ok := err.(*Error)
	if !ok || le.Kind != KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", err)
	}
}

func TestScope_PropagatesBodyError(t *testing.T) {
	sentinel := &Error{Kind: "custom", Message: "boom"}
	err := Scope(context.Background(), time.Second, 0, func(ctx context.Context) error {
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected body error to pass through unchanged, got %v", err)
	}
}

func TestScope_RecoversPanic(t *testing.T) {
	err := Scope(context.Background(), time.Second, 0, func(ctx context.Context) error {
		panic("user code exploded")
	})
	if err == nil {
		t.Fatal("expected panic to surface as an error")
	}
	le, ok := err.(*Error)
	if !ok || le.Kind != KindPanic {
		t.Fatalf("expected KindPanic, got %v", err)
	}
}

func TestScope_NestedScopesDoNotDeadlock(t *testing.T) {
	done := make(chan struct{})
	go func() {
		_ = Scope(context.Background(), time.Second, 0, func(ctx context.Context) error {
			return Scope(ctx, time.Second, 0, func(inner context.Context) error {
				return nil
			})
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested Scope calls deadlocked")
	}
}
