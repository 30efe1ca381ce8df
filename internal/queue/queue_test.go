package queue

import (
	"context"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	q.Put(1)
	q.Put(2)
	q.Put(3)

	ctx := context.Background()
	for _, want := range []int{1, 2, 3} {
		got, err := q.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
}

func TestQueueGetBlocksUntilPut(t *testing.T) {
	q := New[string]()
	done := make(chan string, 1)
	go func() {
		v, err := q.Get(context.Background())
		if err != nil {
			t.Error(err)
			return
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	q.Put("hello")

	select {
	case v := <-done:
		if v != "hello" {
			t.Errorf("got %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Get did not unblock after Put")
	}
}

func TestQueueGetRespectsContextCancellation(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Get(ctx); err == nil {
		t.Fatal("expected context cancellation error")
	}
}
