package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/domain/event"
)

func TestSubscribe(t *testing.T) {
	t.Run("subscribes handler with auto-generated name", func(t *testing.T) {
		d := NewDispatcher(zap.NewNop())
		called := false

		d.Subscribe(event.TypeRequestNeedsApproval, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		evt := event.NewEvent(event.TypeRequestNeedsApproval, 1, 2, nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}

		if !called {
			t.Error("expected handler to be called")
		}
	})

	t.Run("subscribes multiple handlers to same event type", func(t *testing.T) {
		d := NewDispatcher(zap.NewNop())
		called1, called2 := false, false

		d.Subscribe(event.TypeRequestApproved, func(ctx context.Context, evt *event.Event) error {
			called1 = true
			return nil
		})
		d.Subscribe(event.TypeRequestApproved, func(ctx context.Context, evt *event.Event) error {
			called2 = true
			return nil
		})

		evt := event.NewEvent(event.TypeRequestApproved, 1, 2, nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}

		if !called1 || !called2 {
			t.Error("expected both handlers to be called")
		}
	})
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	d.SubscribeNamed(event.TypeRequestRejected, "handler-1", func(ctx context.Context, evt *event.Event) error {
		return nil
	})
	d.SubscribeNamed(event.TypeRequestRejected, "handler-2", func(ctx context.Context, evt *event.Event) error {
		return nil
	})

	handlers := d.ListHandlers(event.TypeRequestRejected)
	if len(handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(handlers))
	}
	if handlers[0].Name != "handler-1" || handlers[1].Name != "handler-2" {
		t.Errorf("unexpected handler names: %s, %s", handlers[0].Name, handlers[1].Name)
	}
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	called := false

	d.SubscribeNamed(event.TypeRequestCancelled, "removable", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})
	d.Unsubscribe(event.TypeRequestCancelled, "removable")

	evt := event.NewEvent(event.TypeRequestCancelled, 1, 2, nil)
	if err := d.Dispatch(context.Background(), evt); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if called {
		t.Error("expected unsubscribed handler not to be called")
	}
}

func TestDispatchStopsOnError(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	handlerErr := errors.New("handler failed")
	secondCalled := false

	d.SubscribeNamed(event.TypeDecisionMade, "failing", func(ctx context.Context, evt *event.Event) error {
		return handlerErr
	})
	d.SubscribeNamed(event.TypeDecisionMade, "after", func(ctx context.Context, evt *event.Event) error {
		secondCalled = true
		return nil
	})

	evt := event.NewEvent(event.TypeDecisionMade, 1, 2, nil)
	err := d.Dispatch(context.Background(), evt)

	if !errors.Is(err, handlerErr) {
		t.Errorf("expected wrapped handler error, got %v", err)
	}
	if secondCalled {
		t.Error("expected dispatch to stop at the failing handler")
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	d.Subscribe(event.TypeRequestAutoApproved, func(ctx context.Context, evt *event.Event) error {
		panic("boom")
	})

	evt := event.NewEvent(event.TypeRequestAutoApproved, 1, 0, nil)
	if err := d.Dispatch(context.Background(), evt); err == nil {
		t.Error("expected panic to surface as error")
	}
}

func TestDispatchAsync(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	for i := 0; i < 2; i++ {
		d.Subscribe(event.TypeRequestNeedsApproval, func(ctx context.Context, evt *event.Event) error {
			defer wg.Done()
			count.Add(1)
			return nil
		})
	}

	evt := event.NewEvent(event.TypeRequestNeedsApproval, 1, 2, nil)
	d.DispatchAsync(context.Background(), evt)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async handlers")
	}

	if count.Load() != 2 {
		t.Errorf("expected 2 handler calls, got %d", count.Load())
	}
}

func TestCloseWaitsForAsyncHandlers(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	var finished atomic.Bool

	d.Subscribe(event.TypeRequestApproved, func(ctx context.Context, evt *event.Event) error {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	evt := event.NewEvent(event.TypeRequestApproved, 1, 2, nil)
	d.DispatchAsync(context.Background(), evt)

	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if !finished.Load() {
		t.Error("expected Close to wait for in-flight handlers")
	}

	if err := d.Close(); err == nil {
		t.Error("expected second Close to fail")
	}
	if err := d.Dispatch(context.Background(), evt); err == nil {
		t.Error("expected dispatch on closed dispatcher to fail")
	}
}
