package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/fitbert/internal/domain/model"
)

func job(id string) model.Job {
	return model.Job{
		ID:      id,
		Mode:    model.JobModeRank,
		Status:  model.JobPending,
		Request: model.RankRequest{Sentence: "Why Bert, you're looking ***mask*** today!", Options: []string{"buff", "handsome"}},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}

	if !q.Enqueue(ctx, job("job1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "job1" {
		t.Errorf("expected job1, got %v", got.ID)
	}
	if got.Request.Options[1] != "handsome" {
		t.Errorf("request not carried: %+v", got.Request)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("job1")) || !q.Enqueue(ctx, job("job2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("job3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("job1")) {
		t.Fatal("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, job("job2")) {
		t.Error("expected enqueue to fail on a closed queue")
	}

	var ids []string
	for j := range q.Dequeue(ctx) {
		ids = append(ids, j.ID)
	}
	if len(ids) != 1 || ids[0] != "job1" {
		t.Errorf("expected queued job to drain after close, got %v", ids)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected no job from a cancelled dequeue")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not stop on cancelled context")
	}
}

func TestInMemoryQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if !q.Enqueue(ctx, job(fmt.Sprintf("job-%d", i))) {
				t.Errorf("enqueue %d failed", i)
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 100 {
		t.Errorf("expected 100 queued jobs, got %d", l)
	}
}
