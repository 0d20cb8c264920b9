package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func TestRedisQueue_EnqueueReserveAck(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingKey, "job-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := q.Reserve(ctx, PendingKey, ProcessingKey, DefaultVisibilityTimeout)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if job != "job-1" {
		t.Fatalf("Reserve returned %q, want job-1", job)
	}

	if err := q.Ack(ctx, ProcessingKey, job); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	expired, err := q.RequeueExpired(ctx, ProcessingKey, PendingKey, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("RequeueExpired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expected no expired jobs after ack, got %v", expired)
	}
}

// TestRedisQueue_ReserveNeverHandsBackAnInFlightJob verifies that a job
// still within another reservation's visibility window cannot be
// reserved again, since Reserve only pops from the pending list.
func TestRedisQueue_ReserveNeverHandsBackAnInFlightJob(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingKey, "job-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	first, err := q.Reserve(ctx, PendingKey, ProcessingKey, DefaultVisibilityTimeout)
	if err != nil {
		t.Fatalf("first Reserve: %v", err)
	}
	if first != "job-1" {
		t.Fatalf("first Reserve = %q, want job-1", first)
	}

	_, err = q.Reserve(ctx, PendingKey, ProcessingKey, DefaultVisibilityTimeout)
	if err != redis.Nil {
		t.Fatalf("second Reserve = (%v), want redis.Nil (pending list is empty)", err)
	}

	stillExpired, err := q.RequeueExpired(ctx, ProcessingKey, PendingKey, time.Now())
	if err != nil {
		t.Fatalf("RequeueExpired: %v", err)
	}
	if len(stillExpired) != 0 {
		t.Fatalf("job within its visibility window must not be requeued, got %v", stillExpired)
	}
}

func TestRedisQueue_RequeueExpired(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingKey, "job-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job, err := q.Reserve(ctx, PendingKey, ProcessingKey, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	moved, err := q.RequeueExpired(ctx, ProcessingKey, PendingKey, time.Now())
	if err != nil {
		t.Fatalf("RequeueExpired: %v", err)
	}
	if len(moved) != 1 || moved[0] != job {
		t.Fatalf("RequeueExpired = %v, want [%s]", moved, job)
	}

	requeued, err := q.Reserve(ctx, PendingKey, ProcessingKey, DefaultVisibilityTimeout)
	if err != nil {
		t.Fatalf("Reserve after requeue: %v", err)
	}
	if requeued != job {
		t.Fatalf("Reserve after requeue = %q, want %q", requeued, job)
	}
}
