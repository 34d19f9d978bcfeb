// Package fetch reads alerts from the repository on behalf of a session and
// publishes the results as store events. It never writes a store directly:
// every change reaches the session through the queue and the processor.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alertcache/internal/alertstore"
	"alertcache/internal/domain"
	"alertcache/internal/metrics"
	"alertcache/internal/queue"
	"alertcache/internal/store"
)

// Errors returned by the fetch service.
var (
	ErrEmptySessionID = errors.New("session id is required")
	ErrPublishFailed  = errors.New("failed to publish event to queue")
)

// Operation names used in logs and metrics.
const (
	OpTotals       = "totals"
	OpList         = "list"
	OpDataEntity   = "data_entity"
	OpUpdateStatus = "update_status"
)

// Service turns repository reads into store events.
type Service struct {
	producer   queue.Producer
	alertRepo  store.AlertRepository
	ownerships store.OwnershipStore
	logger     *slog.Logger
}

// NewService creates a new fetch service.
func NewService(
	producer queue.Producer,
	alertRepo store.AlertRepository,
	ownerships store.OwnershipStore,
	logger *slog.Logger,
) *Service {
	return &Service{
		producer:   producer,
		alertRepo:  alertRepo,
		ownerships: ownerships,
		logger:     logger,
	}
}

// RefreshTotals computes the totals seen by owner and publishes TotalsRefreshed.
// An empty owner yields zero owner-relative counts.
func (s *Service) RefreshTotals(ctx context.Context, sessionID, owner string) (err error) {
	defer s.observe(OpTotals, time.Now(), &err)

	if sessionID == "" {
		return ErrEmptySessionID
	}

	totals, err := s.totals(ctx, owner)
	if err != nil {
		return err
	}
	return s.publish(ctx, sessionID, alertstore.TotalsRefreshed{Totals: totals})
}

func (s *Service) totals(ctx context.Context, owner string) (domain.AlertTotals, error) {
	var totals domain.AlertTotals

	total, err := s.alertRepo.CountOpen(ctx, nil)
	if err != nil {
		return totals, fmt.Errorf("failed to count alerts: %w", err)
	}
	totals.Total = total

	if owner == "" {
		return totals, nil
	}

	owned, err := s.ownerships.Entities(ctx, owner, domain.RelationOwned)
	if err != nil {
		return totals, err
	}
	if totals.MyTotal, err = s.alertRepo.CountOpen(ctx, owned); err != nil {
		return totals, fmt.Errorf("failed to count owned alerts: %w", err)
	}

	dependent, err := s.ownerships.Entities(ctx, owner, domain.RelationDependent)
	if err != nil {
		return totals, err
	}
	if totals.DependentTotal, err = s.alertRepo.CountOpen(ctx, dependent); err != nil {
		return totals, fmt.Errorf("failed to count dependent alerts: %w", err)
	}
	return totals, nil
}

// RefreshList fetches one page of the full alert list and publishes ListRefreshed.
func (s *Service) RefreshList(ctx context.Context, sessionID string, page, size int) (err error) {
	defer s.observe(OpList, time.Now(), &err)

	if sessionID == "" {
		return ErrEmptySessionID
	}

	items, total, err := s.alertRepo.List(ctx, domain.AlertFilter{Page: page, Size: size})
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}

	pageInfo := domain.NewPageInfo(total, page, size)
	return s.publish(ctx, sessionID, alertstore.ListRefreshed{
		Items:    values(items),
		PageInfo: &pageInfo,
	})
}

// RefreshDataEntity fetches every alert of a data entity and publishes
// EntityAlertsRefreshed.
func (s *Service) RefreshDataEntity(ctx context.Context, sessionID string, entityID domain.DataEntityID) (err error) {
	defer s.observe(OpDataEntity, time.Now(), &err)

	if sessionID == "" {
		return ErrEmptySessionID
	}
	if entityID == "" {
		return domain.ErrEmptyDataEntityID
	}

	items, err := s.alertRepo.ListByDataEntity(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to list data entity alerts: %w", err)
	}

	return s.publish(ctx, sessionID, alertstore.EntityAlertsRefreshed{
		DataEntityID: entityID,
		Items:        values(items),
	})
}

// UpdateStatus writes the new status to the repository, then publishes
// StatusUpdated with the status the repository stored.
func (s *Service) UpdateStatus(ctx context.Context, sessionID string, alertID domain.AlertID, req domain.UpdateStatusRequest) (err error) {
	defer s.observe(OpUpdateStatus, time.Now(), &err)

	if sessionID == "" {
		return ErrEmptySessionID
	}
	if alertID == "" {
		return domain.ErrEmptyAlertID
	}
	if err := req.Validate(); err != nil {
		return err
	}

	updated, err := s.alertRepo.UpdateStatus(ctx, alertID, req.Status, req.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}

	return s.publish(ctx, sessionID, alertstore.StatusUpdated{
		AlertID: updated.ID,
		Status:  updated.Status,
	})
}

// publish encodes the event and sends it keyed by session id, so all events
// of one session are delivered in order.
func (s *Service) publish(ctx context.Context, sessionID string, event alertstore.Event) error {
	payload, err := alertstore.Encode(sessionID, event)
	if err != nil {
		s.logger.Error("failed to encode event", "error", err, "kind", event.Kind())
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := &queue.Message{
		Key:   []byte(sessionID),
		Value: payload,
		Headers: map[string]string{
			queue.HeaderEventType:   string(event.Kind()),
			queue.HeaderSessionID:   sessionID,
			queue.HeaderPublishedAt: time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	publishStart := time.Now()
	if err := s.producer.Publish(ctx, msg); err != nil {
		s.logger.Error("failed to publish event", "error", err, "session_id", sessionID, "kind", event.Kind())
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	metrics.QueuePublishLatency.Observe(time.Since(publishStart).Seconds())
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Kind())).Inc()

	s.logger.Debug("event published to queue",
		"session_id", sessionID,
		"kind", event.Kind(),
	)
	return nil
}

func (s *Service) observe(op string, start time.Time, err *error) {
	metrics.FetchLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := metrics.ResultSuccess
	if *err != nil {
		result = metrics.ResultFailure
		s.logger.Warn("fetch failed", "operation", op, "error", *err)
	}
	metrics.FetchesTotal.WithLabelValues(op, result).Inc()
}

func values(alerts []*domain.Alert) []domain.Alert {
	out := make([]domain.Alert, len(alerts))
	for i, a := range alerts {
		out[i] = *a
	}
	return out
}
