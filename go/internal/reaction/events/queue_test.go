package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestQueueDeliversInOrder(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	id := uuid.New()
	sent := []Event{NewActivation(), NewTimerFired(id), NewQuit()}
	for _, ev := range sent {
		if err := q.Send(ctx, ev); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	for i, want := range sent {
		got, err := q.Receive(ctx)
		if err != nil {
			t.Fatalf("receive %d failed: %v", i, err)
		}
		if got != want {
			t.Errorf("event %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestQueueSendAfterClose(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	q.Close() // idempotent

	err := q.Send(context.Background(), NewActivation())
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueSendUnblocksOnClose(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()

	if err := q.Send(ctx, NewActivation()); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Send(ctx, NewActivation())
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked send was not released by Close")
	}
}

func TestQueueAbort(t *testing.T) {
	q := NewQueue(4)
	boom := errors.New("boom")

	q.Abort(boom)
	q.Abort(errors.New("second")) // first error wins

	_, err := q.Receive(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected abort error, got %v", err)
	}
}

func TestQueueAbortAfterCloseIsNoop(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	q.Abort(errors.New("late"))

	if err := q.Err(); err != nil {
		t.Fatalf("expected no abort error after close, got %v", err)
	}
}

func TestQueueReceiveHonoursContext(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		Activation: "activation",
		TimerFired: "timer_fired",
		Quit:       "quit",
		Kind(42):   "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
