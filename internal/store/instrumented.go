package store

import (
	"context"
	"time"

	"alertcache/internal/domain"
	"alertcache/internal/metrics"
)

// InstrumentedAlertRepository records latency and outcome of every call to
// the wrapped repository under the given backend name.
type InstrumentedAlertRepository struct {
	next    AlertRepository
	backend string
}

var _ AlertRepository = (*InstrumentedAlertRepository)(nil)

// Instrument wraps repo so its calls show up in the storage metrics.
func Instrument(repo AlertRepository, backend string) *InstrumentedAlertRepository {
	return &InstrumentedAlertRepository{next: repo, backend: backend}
}

func (r *InstrumentedAlertRepository) Upsert(ctx context.Context, alert *domain.Alert) (err error) {
	defer func(start time.Time) { metrics.ObserveStorage(r.backend, "upsert", start, err) }(time.Now())
	return r.next.Upsert(ctx, alert)
}

func (r *InstrumentedAlertRepository) GetByID(ctx context.Context, id domain.AlertID) (_ *domain.Alert, err error) {
	defer func(start time.Time) { metrics.ObserveStorage(r.backend, "get", start, err) }(time.Now())
	return r.next.GetByID(ctx, id)
}

func (r *InstrumentedAlertRepository) List(ctx context.Context, filter domain.AlertFilter) (_ []*domain.Alert, _ int64, err error) {
	defer func(start time.Time) { metrics.ObserveStorage(r.backend, "list", start, err) }(time.Now())
	return r.next.List(ctx, filter)
}

func (r *InstrumentedAlertRepository) ListByDataEntity(ctx context.Context, id domain.DataEntityID) (_ []*domain.Alert, err error) {
	defer func(start time.Time) { metrics.ObserveStorage(r.backend, "list_by_entity", start, err) }(time.Now())
	return r.next.ListByDataEntity(ctx, id)
}

func (r *InstrumentedAlertRepository) UpdateStatus(ctx context.Context, id domain.AlertID, status domain.AlertStatus, by string) (_ *domain.Alert, err error) {
	defer func(start time.Time) { metrics.ObserveStorage(r.backend, "update_status", start, err) }(time.Now())
	return r.next.UpdateStatus(ctx, id, status, by)
}

func (r *InstrumentedAlertRepository) CountOpen(ctx context.Context, scope []domain.DataEntityID) (_ int64, err error) {
	defer func(start time.Time) { metrics.ObserveStorage(r.backend, "count_open", start, err) }(time.Now())
	return r.next.CountOpen(ctx, scope)
}
