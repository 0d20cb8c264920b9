package store

import (
	"context"
	"fmt"
	"time"

	"github.com/xtevenx/sjudge/queue"
)

// QueueMetrics is the queue's current depth, as seen by the admin
// dashboard.
type QueueMetrics struct {
	Pending          int64 `json:"pending"`
	Processing       int64 `json:"processing"`
	ExpiredCandidate int64 `json:"expired_candidate"`
}

// MetricsService reads queue depth and worker heartbeats from Redis.
type MetricsService struct {
	redis queue.RawClient
}

func NewMetricsService(redis queue.RawClient) *MetricsService {
	return &MetricsService{redis: redis}
}

// Overview returns both the queue depth and all live worker heartbeats.
func (s *MetricsService) Overview(ctx context.Context) (QueueMetrics, []queue.WorkerHeartbeat, error) {
	q, err := s.Queue(ctx)
	if err != nil {
		return QueueMetrics{}, nil, err
	}
	workers, err := s.Workers(ctx)
	if err != nil {
		return q, nil, err
	}
	return q, workers, nil
}

// Queue reports pending/processing counts and how many processing
// entries are already past their visibility deadline.
func (s *MetricsService) Queue(ctx context.Context) (QueueMetrics, error) {
	now := time.Now().UnixMilli()
	pending, err := s.redis.LLen(ctx, queue.PendingKey).Result()
	if err != nil {
		return QueueMetrics{}, err
	}
	processing, err := s.redis.ZCard(ctx, queue.ProcessingKey).Result()
	if err != nil {
		return QueueMetrics{}, err
	}
	expired, err := s.redis.ZCount(ctx, queue.ProcessingKey, "-inf", fmt.Sprintf("%d", now)).Result()
	if err != nil {
		return QueueMetrics{}, err
	}
	return QueueMetrics{Pending: pending, Processing: processing, ExpiredCandidate: expired}, nil
}

// Workers returns every worker heartbeat currently live in Redis.
func (s *MetricsService) Workers(ctx context.Context) ([]queue.WorkerHeartbeat, error) {
	return queue.LoadHeartbeats(ctx, s.redis)
}
