// Package queue defines the transport that carries store events from the
// fetcher to the processor. Implementations must deliver messages with the
// same key in publish order.
package queue

import (
	"context"
	"errors"
)

// Header names set on every published store event.
const (
	HeaderEventType   = "event_type"
	HeaderSessionID   = "session_id"
	HeaderPublishedAt = "published_at"
)

// ErrQueueClosed is returned when publishing to a closed queue.
var ErrQueueClosed = errors.New("queue is closed")

// Message represents a message in the queue.
type Message struct {
	// Key is the partition key. Events of one session share a key.
	Key []byte

	// Value is the encoded event envelope.
	Value []byte

	// Headers contains optional metadata.
	Headers map[string]string
}

// Header returns the header value for name, or "" if unset.
func (m *Message) Header(name string) string {
	if m == nil || m.Headers == nil {
		return ""
	}
	return m.Headers[name]
}

// Producer defines the interface for publishing messages to a queue.
// Implementations must be safe for concurrent use.
type Producer interface {
	// Publish sends a message to the queue.
	// Messages with the same key are delivered in order.
	Publish(ctx context.Context, msg *Message) error

	// Close releases any resources held by the producer.
	Close() error
}

// MessageHandler is a callback function for processing consumed messages.
// Return an error to indicate processing failure (implementation may retry).
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer defines the interface for consuming messages from a queue.
type Consumer interface {
	// Start calls handler for each message, one at a time, in delivery order.
	// It blocks until the context is canceled or the consumer is closed.
	Start(ctx context.Context, handler MessageHandler) error

	// Close stops consuming and releases any resources.
	Close() error
}
