// Package processor applies store events from the queue to session stores.
// It is the only writer of every store: messages are handled one at a time in
// delivery order, so events of one session are applied in publish order.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"alertcache/internal/alertstore"
	"alertcache/internal/metrics"
	"alertcache/internal/queue"
)

// Stores resolves the store of a session, creating it if needed.
// It refuses sessions that were closed recently.
type Stores interface {
	GetOrCreate(sessionID string) (*alertstore.Store, error)
}

// Service consumes the event queue and dispatches into session stores.
type Service struct {
	consumer queue.Consumer
	stores   Stores
	logger   *slog.Logger
}

// NewService creates a new processor service.
func NewService(consumer queue.Consumer, stores Stores, logger *slog.Logger) *Service {
	return &Service{
		consumer: consumer,
		stores:   stores,
		logger:   logger,
	}
}

// Start begins consuming events from the queue and applying them.
// This is a blocking call that runs until the context is canceled.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting processor service")
	return s.consumer.Start(ctx, s.handleMessage)
}

// handleMessage decodes one envelope and dispatches it.
// It never returns an error: a message that cannot be applied is dropped,
// redelivering it would not change the outcome.
func (s *Service) handleMessage(_ context.Context, msg *queue.Message) error {
	if published := msg.Header(queue.HeaderPublishedAt); published != "" {
		if at, err := time.Parse(time.RFC3339Nano, published); err == nil {
			metrics.EventQueueLatency.Observe(time.Since(at).Seconds())
		}
	}

	sessionID, event, err := alertstore.Decode(msg.Value)
	if err != nil {
		s.logger.Error("failed to decode event", "error", err, "key", string(msg.Key))
		metrics.EventsConsumedTotal.WithLabelValues(metrics.ResultDropped).Inc()
		return nil
	}
	if sessionID == "" {
		s.logger.Warn("event without session id", "kind", event.Kind())
		metrics.EventsConsumedTotal.WithLabelValues(metrics.ResultDropped).Inc()
		return nil
	}

	store, err := s.stores.GetOrCreate(sessionID)
	if err != nil {
		s.logger.Debug("dropping event for unavailable session", "session_id", sessionID, "kind", event.Kind(), "error", err)
		metrics.EventsConsumedTotal.WithLabelValues(metrics.ResultDropped).Inc()
		return nil
	}
	if err := store.Dispatch(event); err != nil {
		if errors.Is(err, alertstore.ErrStoreClosed) {
			s.logger.Debug("session closed before event arrived", "session_id", sessionID, "kind", event.Kind())
		} else {
			s.logger.Error("failed to dispatch event", "error", err, "session_id", sessionID)
		}
		metrics.EventsConsumedTotal.WithLabelValues(metrics.ResultDropped).Inc()
		return nil
	}

	s.logger.Debug("event applied",
		"session_id", sessionID,
		"kind", event.Kind(),
	)
	metrics.EventsConsumedTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return nil
}
