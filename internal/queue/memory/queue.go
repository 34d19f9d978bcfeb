// Package memory provides an in-process implementation of the queue interfaces.
// It is used when the service runs without external brokers and in tests.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"alertcache/internal/queue"
)

// Queue is an in-memory Producer and Consumer backed by a buffered channel.
// A single consumer sees messages in publish order.
type Queue struct {
	messages chan *queue.Message
	done     chan struct{}
	logger   *slog.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewQueue creates a new in-memory queue with the specified buffer size.
// Publish blocks once the buffer is full. logger may be nil.
func NewQueue(bufferSize int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{
		messages: make(chan *queue.Message, bufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Publish enqueues a message, blocking while the buffer is full.
func (q *Queue) Publish(ctx context.Context, msg *queue.Message) error {
	select {
	case <-q.done:
		return queue.ErrQueueClosed
	default:
	}

	select {
	case q.messages <- msg:
		return nil
	case <-q.done:
		return queue.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start consumes messages until ctx is canceled or the queue is closed.
// Handler errors are logged and the message is dropped.
func (q *Queue) Start(ctx context.Context, handler queue.MessageHandler) error {
	q.wg.Add(1)
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case msg := <-q.messages:
			if err := handler(ctx, msg); err != nil {
				q.logger.Error("failed to process message",
					"error", err,
					"key", string(msg.Key),
				)
			}
		}
	}
}

// Close shuts down the queue and waits for running consumers to return.
// Buffered messages that were not consumed are discarded.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
	return nil
}

// Len returns the current number of buffered messages.
func (q *Queue) Len() int {
	return len(q.messages)
}
