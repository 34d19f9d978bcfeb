// Package redis carries store events over a Redis list.
// Producers RPUSH onto the list and a single consumer BLPOPs from its head,
// so messages are delivered in publish order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"alertcache/internal/config"
	"alertcache/internal/queue"
)

// Retry delays after a failed pop. Each consecutive failure doubles the
// delay up to maxRetryDelay; a successful pop resets it.
const (
	minRetryDelay = 100 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

// Queue implements queue.Producer and queue.Consumer on one Redis list.
type Queue struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
	logger       *slog.Logger
}

// wireMessage is the list element format.
type wireMessage struct {
	Key     []byte            `json:"key,omitempty"`
	Value   []byte            `json:"value"`
	Headers map[string]string `json:"headers,omitempty"`
}

// NewQueue connects to Redis and returns a list-backed queue.
func NewQueue(cfg *config.RedisConfig, logger *slog.Logger) (*Queue, error) {
	if cfg.ListKey == "" {
		return nil, errors.New("redis list key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{
		client:       client,
		key:          cfg.ListKey,
		blockTimeout: cfg.BlockTimeout,
		logger:       logger,
	}, nil
}

// Publish appends a message to the tail of the list.
func (q *Queue) Publish(ctx context.Context, msg *queue.Message) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return queue.ErrQueueClosed
		}
		return fmt.Errorf("failed to push message to redis: %w", err)
	}
	return nil
}

// Start pops messages from the head of the list until ctx is canceled.
// An element that cannot be decoded is logged and skipped.
func (q *Queue) Start(ctx context.Context, handler queue.MessageHandler) error {
	q.logger.Info("starting redis consumer", "key", q.key)

	var delay time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := q.client.BLPop(ctx, q.blockTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			delay = 0
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, redis.ErrClosed) {
				return nil
			}
			delay = nextRetryDelay(delay)
			q.logger.Error("failed to pop message", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		if len(res) < 2 {
			continue
		}

		msg, err := decode([]byte(res[1]))
		if err != nil {
			q.logger.Error("dropping undecodable list element", "error", err)
			continue
		}

		if err := handler(ctx, msg); err != nil {
			q.logger.Error("failed to process message",
				"error", err,
				"key", string(msg.Key),
			)
		}
	}
}

// Len returns the number of pending messages.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close closes the Redis client.
func (q *Queue) Close() error {
	return q.client.Close()
}

func nextRetryDelay(prev time.Duration) time.Duration {
	if prev < minRetryDelay {
		return minRetryDelay
	}
	return min(2*prev, maxRetryDelay)
}

func encode(msg *queue.Message) ([]byte, error) {
	data, err := json.Marshal(wireMessage{Key: msg.Key, Value: msg.Value, Headers: msg.Headers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*queue.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &queue.Message{Key: w.Key, Value: w.Value, Headers: w.Headers}, nil
}
