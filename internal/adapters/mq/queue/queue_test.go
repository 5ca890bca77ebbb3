package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
)

func job(i int) Job {
	return Job{Index: i, Requester: &model.Profile{}, Candidate: &model.Profile{UserID: model.UserID(i)}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.Index != 1 {
		t.Errorf("expected job 1, got %d", j.Index)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job(1)) || !q.Enqueue(ctx, job(2)) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(ctx, job(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if err := q.Submit(ctx, job(3)); err == nil || errors.Is(err, ErrClosed) {
		t.Errorf("expected a queue full error, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 10, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.Enqueue(ctx, job(p*perProducer+i)) {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}

	consumed := make(chan int, producers*perProducer)
	for c := 0; c < 4; c++ {
		go func() {
			for j := range q.Dequeue(ctx) {
				consumed <- j.Index
			}
		}()
	}

	wg.Wait()
	seen := make(map[int]bool, producers*perProducer)
	timeout := time.After(2 * time.Second)
	for len(seen) < producers*perProducer {
		select {
		case idx := <-consumed:
			if seen[idx] {
				t.Fatalf("job %d delivered twice", idx)
			}
			seen[idx] = true
		case <-timeout:
			t.Fatalf("consumed %d of %d jobs", len(seen), producers*perProducer)
		}
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, job(1)) || !q.Enqueue(ctx, job(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job(3)) {
		t.Error("expected enqueue to fail after closing")
	}
	if err := q.Submit(ctx, job(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// queued jobs are still delivered, then the channel closes
	got := 0
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if got != 2 {
					t.Errorf("expected 2 drained jobs, got %d", got)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			got++
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}

func TestInMemoryQueue_CancelledConsumer(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx, cancel := context.WithCancel(context.Background())

	ch := q.Dequeue(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected no job on a cancelled consumer")
		}
	case <-time.After(time.Second):
		t.Fatal("expected dequeue channel to close after cancel")
	}
}
