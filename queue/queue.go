// Package queue implements the Redis-backed submission queue: a
// visibility-timeout list/sorted-set pair so a worker that dies
// mid-job doesn't lose it.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys and the default visibility window, unchanged in shape from the
// teacher's queue_constants.go.
const (
	PendingKey    = "sjudge:submissions:pending"
	ProcessingKey = "sjudge:submissions:processing"

	DefaultVisibilityTimeout = 30 * time.Second
)

// Client is the minimal queue interface cmd/api and cmd/worker share.
type Client interface {
	Enqueue(ctx context.Context, pendingKey, value string) error
	Reserve(ctx context.Context, pendingKey, processingKey string, visibility time.Duration) (string, error)
	Ack(ctx context.Context, processingKey, value string) error
	RequeueExpired(ctx context.Context, processingKey, pendingKey string, now time.Time) ([]string, error)
}

// RawClient exposes the subset of go-redis used for metrics and heartbeats.
type RawClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	ZCount(ctx context.Context, key, min, max string) *redis.IntCmd
}

// RedisQueue implements Client over a go-redis connection.
type RedisQueue struct {
	client *redis.Client
}

// Connect dials redisURL (e.g. redis://localhost:6379/0) and verifies
// connectivity before returning.
func Connect(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// New wraps a go-redis client with the queue's reserve/ack semantics.
func New(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Enqueue pushes submissionID to the head of the pending list.
func (q *RedisQueue) Enqueue(ctx context.Context, pendingKey, value string) error {
	return q.client.LPush(ctx, pendingKey, value).Err()
}

var reserveScript = redis.NewScript(`
local v = redis.call('RPOP', KEYS[1])
if v then
  redis.call('ZADD', KEYS[2], ARGV[1], v)
end
return v
`)

// Reserve atomically moves one job from pending to processing, scored
// by the wall-clock deadline by which it must be acked or it is
// assumed lost and becomes eligible for RequeueExpired again.
func (q *RedisQueue) Reserve(ctx context.Context, pendingKey, processingKey string, visibility time.Duration) (string, error) {
	deadline := float64(time.Now().Add(visibility).UnixMilli())
	res, err := reserveScript.Run(ctx, q.client, []string{pendingKey, processingKey}, deadline).Result()
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", redis.Nil
	}
	s, ok := res.(string)
	if !ok {
		return "", errors.New("unexpected reserve response type")
	}
	return s, nil
}

// Ack removes a job from the processing set once it has been handled.
func (q *RedisQueue) Ack(ctx context.Context, processingKey, value string) error {
	return q.client.ZRem(ctx, processingKey, value).Err()
}

var requeueScript = redis.NewScript(`
local vals = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = table.getn(vals)
if count > 0 then
  redis.call('ZREM', KEYS[1], unpack(vals))
  redis.call('LPUSH', KEYS[2], unpack(vals))
end
return vals
`)

// RequeueExpired moves every job whose visibility deadline has passed
// back onto the pending list, and reports which jobs were moved.
func (q *RedisQueue) RequeueExpired(ctx context.Context, processingKey, pendingKey string, now time.Time) ([]string, error) {
	deadline := float64(now.UnixMilli())
	res, err := requeueScript.Run(ctx, q.client, []string{processingKey, pendingKey}, deadline).Result()
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	rawVals, ok := res.([]interface{})
	if !ok {
		return nil, errors.New("unexpected requeue response type")
	}
	out := make([]string, 0, len(rawVals))
	for _, v := range rawVals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
