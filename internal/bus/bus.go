package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds configuration for the message bus.
type Config struct {
	Addr     string
	Password string
	DB       int
	Logger   *zap.Logger
}

// Bus wraps a Redis connection and exposes the messaging primitives the
// engine is built on: durable request queues, per-request reply slots with
// a TTL, pub/sub channels and append-only result streams.
type Bus struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg *Config) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	cfg.Logger.Info("bus-connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))

	return &Bus{
		client: client,
		logger: cfg.Logger,
	}, nil
}

// Client exposes the underlying Redis client for stores that need
// transactional access.
func (b *Bus) Client() *redis.Client {
	return b.client
}

// Close shuts down the connection pool.
func (b *Bus) Close() error {
	return b.client.Close()
}

// QueuePush appends a payload to a durable queue.
func (b *Bus) QueuePush(ctx context.Context, queue string, payload []byte) error {
	err := b.client.LPush(ctx, queue, payload).Err()
	if err != nil {
		OperationErrorsTotal.WithLabelValues("queue_push").Inc()
		return fmt.Errorf("push to queue %s: %w", queue, err)
	}

	OperationsTotal.WithLabelValues("queue_push").Inc()
	return nil
}

// QueuePop blocks until a payload is available on the queue or the timeout
// elapses. A nil payload with a nil error means the wait timed out.
func (b *Bus) QueuePop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	res, err := b.client.BRPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		OperationErrorsTotal.WithLabelValues("queue_pop").Inc()
		return nil, fmt.Errorf("pop from queue %s: %w", queue, err)
	}

	// BRPOP returns [key, value].
	OperationsTotal.WithLabelValues("queue_pop").Inc()
	return []byte(res[1]), nil
}

// ReplyPush writes a reply payload to a per-request slot with a TTL, so
// abandoned replies expire on their own.
func (b *Bus) ReplyPush(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		OperationErrorsTotal.WithLabelValues("reply_push").Inc()
		return fmt.Errorf("push reply %s: %w", key, err)
	}

	OperationsTotal.WithLabelValues("reply_push").Inc()
	return nil
}

// ReplyPop blocks on a reply slot. A nil payload with a nil error means the
// wait timed out.
func (b *Bus) ReplyPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := b.client.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		OperationErrorsTotal.WithLabelValues("reply_pop").Inc()
		return nil, fmt.Errorf("pop reply %s: %w", key, err)
	}

	OperationsTotal.WithLabelValues("reply_pop").Inc()
	return []byte(res[1]), nil
}

// ClearPattern deletes every key matching the pattern and returns the number
// of keys removed. Used on service startup to drop in-flight requests.
func (b *Bus) ClearPattern(ctx context.Context, pattern string) (int, error) {
	var removed int

	iter := b.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		err := b.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			OperationErrorsTotal.WithLabelValues("clear_pattern").Inc()
			return removed, fmt.Errorf("delete key %s: %w", iter.Val(), err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		OperationErrorsTotal.WithLabelValues("clear_pattern").Inc()
		return removed, fmt.Errorf("scan pattern %s: %w", pattern, err)
	}

	OperationsTotal.WithLabelValues("clear_pattern").Inc()
	return removed, nil
}

// Publish sends a payload on a pub/sub channel. Delivery is fire-and-forget.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	err := b.client.Publish(ctx, channel, payload).Err()
	if err != nil {
		OperationErrorsTotal.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	OperationsTotal.WithLabelValues("publish").Inc()
	return nil
}

// Subscribe opens a pub/sub subscription. The caller owns the returned
// subscription and must Close it.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return b.client.Subscribe(ctx, channels...)
}

// StreamAdd appends an entry to a stream and returns its auto-assigned id.
func (b *Bus) StreamAdd(ctx context.Context, stream string, values map[string]any) (string, error) {
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		OperationErrorsTotal.WithLabelValues("stream_add").Inc()
		return "", fmt.Errorf("append to stream %s: %w", stream, err)
	}

	OperationsTotal.WithLabelValues("stream_add").Inc()
	return id, nil
}

// StreamRead reads entries after lastID, blocking up to block if the stream
// has nothing new. A nil slice with a nil error means the wait timed out.
func (b *Bus) StreamRead(ctx context.Context, stream, lastID string, block time.Duration, count int64) ([]redis.XMessage, error) {
	if lastID == "" {
		lastID = "0"
	}

	streams, err := b.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Block:   block,
		Count:   count,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		OperationErrorsTotal.WithLabelValues("stream_read").Inc()
		return nil, fmt.Errorf("read stream %s: %w", stream, err)
	}

	OperationsTotal.WithLabelValues("stream_read").Inc()
	return streams[0].Messages, nil
}

// StreamRange returns stream entries between start and stop inclusive.
func (b *Bus) StreamRange(ctx context.Context, stream, start, stop string) ([]redis.XMessage, error) {
	msgs, err := b.client.XRange(ctx, stream, start, stop).Result()
	if err != nil {
		OperationErrorsTotal.WithLabelValues("stream_range").Inc()
		return nil, fmt.Errorf("range stream %s: %w", stream, err)
	}

	OperationsTotal.WithLabelValues("stream_range").Inc()
	return msgs, nil
}

// StreamTrimBefore drops stream entries with ids strictly below minID,
// bounding the stream by the slowest reader's checkpoint.
func (b *Bus) StreamTrimBefore(ctx context.Context, stream, minID string) error {
	err := b.client.XTrimMinID(ctx, stream, minID).Err()
	if err != nil {
		OperationErrorsTotal.WithLabelValues("stream_trim").Inc()
		return fmt.Errorf("trim stream %s: %w", stream, err)
	}

	OperationsTotal.WithLabelValues("stream_trim").Inc()
	return nil
}

// Incr atomically increments a counter key and returns the new value.
func (b *Bus) Incr(ctx context.Context, key string) (int64, error) {
	val, err := b.client.Incr(ctx, key).Result()
	if err != nil {
		OperationErrorsTotal.WithLabelValues("incr").Inc()
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}

	OperationsTotal.WithLabelValues("incr").Inc()
	return val, nil
}
