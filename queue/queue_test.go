package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func await(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for result")
		return Result{}
	}
}

func TestSubmitDeliversResult(t *testing.T) {
	m := NewManager()
	defer m.Close()

	ch, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res := await(t, ch)
	if res.Err != nil || res.Value.(int) != 42 {
		t.Fatalf("result = %+v", res)
	}
}

func TestOperationsRunInSubmissionOrder(t *testing.T) {
	m := NewManager()
	defer m.Close()

	var mu sync.Mutex
	var order []int

	var last <-chan Result
	for i := 0; i < 20; i++ {
		i := i
		ch, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		last = ch
	}
	await(t, last)

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("position %d ran op %d", i, got)
		}
	}
}

func TestDifferentItinerariesRunConcurrently(t *testing.T) {
	m := NewManager()
	defer m.Close()

	release := make(chan struct{})

	// blocks trip1's worker
	blocked, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// trip2 must proceed while trip1 is stuck
	ch, err := m.Submit(context.Background(), "trip2", func(ctx context.Context) (any, error) {
		return "free", nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	res := await(t, ch)
	if res.Value != "free" {
		t.Fatalf("trip2 result = %+v", res)
	}

	close(release)
	await(t, blocked)
}

func TestTeardownRunsPendingAndRejectsNew(t *testing.T) {
	m := NewManager()

	release := make(chan struct{})
	done := make(chan struct{})

	first, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	pending, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) {
		close(done)
		return "ran", nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	m.Teardown("trip1")

	// new submissions are rejected while the drain is in flight
	if _, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) {
		return nil, nil
	}); !errors.Is(err, ErrTornDown) {
		t.Fatalf("expected ErrTornDown, got %v", err)
	}

	// already-submitted work still runs to completion
	close(release)
	await(t, first)
	res := await(t, pending)
	if res.Value != "ran" {
		t.Fatalf("pending op result = %+v", res)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pending op never ran after teardown")
	}
}

func TestTeardownAllowsFreshSessionLater(t *testing.T) {
	m := NewManager()
	defer m.Close()

	ch, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) { return 1, nil })
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	await(t, ch)

	m.Teardown("trip1")

	// once the old worker drains and removes itself a fresh session opens
	deadline := time.Now().Add(2 * time.Second)
	for {
		ch, err = m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) { return 2, nil })
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTornDown) {
			t.Fatalf("submit after teardown: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("worker never drained after teardown")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if res := await(t, ch); res.Value.(int) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestOperationErrorPropagates(t *testing.T) {
	m := NewManager()
	defer m.Close()

	boom := errors.New("boom")
	ch, err := m.Submit(context.Background(), "trip1", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res := await(t, ch); !errors.Is(res.Err, boom) {
		t.Fatalf("err = %v", res.Err)
	}
}
