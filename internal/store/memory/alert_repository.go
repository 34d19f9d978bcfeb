// Package memory provides in-memory implementations of store interfaces.
// These back the service when no database is configured, and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"alertcache/internal/domain"
)

// AlertRepository is an in-memory implementation of store.AlertRepository.
type AlertRepository struct {
	mu sync.RWMutex

	alerts map[domain.AlertID]*domain.Alert

	// byEntity indexes alert ids by data entity.
	byEntity map[domain.DataEntityID]map[domain.AlertID]struct{}

	now func() time.Time
}

// NewAlertRepository creates a new in-memory alert repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts:   make(map[domain.AlertID]*domain.Alert),
		byEntity: make(map[domain.DataEntityID]map[domain.AlertID]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Upsert stores a copy of the alert.
func (r *AlertRepository) Upsert(ctx context.Context, alert *domain.Alert) error {
	if alert.ID == "" {
		return domain.ErrEmptyAlertID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.alerts[alert.ID]; ok && existing.DataEntityID != alert.DataEntityID {
		r.unindex(existing)
	}

	alertCopy := *alert
	if alertCopy.CreatedAt.IsZero() {
		alertCopy.CreatedAt = r.now()
	}
	r.alerts[alert.ID] = &alertCopy

	if alert.DataEntityID != "" {
		ids := r.byEntity[alert.DataEntityID]
		if ids == nil {
			ids = make(map[domain.AlertID]struct{})
			r.byEntity[alert.DataEntityID] = ids
		}
		ids[alert.ID] = struct{}{}
	}
	return nil
}

func (r *AlertRepository) unindex(alert *domain.Alert) {
	ids := r.byEntity[alert.DataEntityID]
	delete(ids, alert.ID)
	if len(ids) == 0 {
		delete(r.byEntity, alert.DataEntityID)
	}
}

// GetByID retrieves an alert by id.
func (r *AlertRepository) GetByID(ctx context.Context, id domain.AlertID) (*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, exists := r.alerts[id]
	if !exists {
		return nil, domain.ErrAlertNotFound
	}

	result := *alert
	return &result, nil
}

// List returns one page of matching alerts and the total match count.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, int64, error) {
	r.mu.RLock()
	var results []*domain.Alert
	for _, alert := range r.alerts {
		if filter.DataEntityID != "" && alert.DataEntityID != filter.DataEntityID {
			continue
		}
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		alertCopy := *alert
		results = append(results, &alertCopy)
	}
	r.mu.RUnlock()

	sortAlerts(results)
	total := int64(len(results))

	start := min(filter.Offset(), len(results))
	end := len(results)
	if filter.Size > 0 && filter.Size < end-start {
		end = start + filter.Size
	}

	return results[start:end], total, nil
}

// ListByDataEntity returns every alert of a data entity.
func (r *AlertRepository) ListByDataEntity(ctx context.Context, id domain.DataEntityID) ([]*domain.Alert, error) {
	if id == "" {
		return nil, domain.ErrEmptyDataEntityID
	}

	r.mu.RLock()
	ids := r.byEntity[id]
	results := make([]*domain.Alert, 0, len(ids))
	for alertID := range ids {
		alertCopy := *r.alerts[alertID]
		results = append(results, &alertCopy)
	}
	r.mu.RUnlock()

	sortAlerts(results)
	return results, nil
}

// UpdateStatus changes the status of a stored alert.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id domain.AlertID, status domain.AlertStatus, by string) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, exists := r.alerts[id]
	if !exists {
		return nil, domain.ErrAlertNotFound
	}

	now := r.now()
	alert.Status = status
	alert.StatusUpdatedAt = &now
	alert.StatusUpdatedBy = by

	result := *alert
	return &result, nil
}

// CountOpen counts open alerts, optionally restricted to a set of entities.
func (r *AlertRepository) CountOpen(ctx context.Context, scope []domain.DataEntityID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	if scope == nil {
		for _, alert := range r.alerts {
			if alert.IsOpen() {
				count++
			}
		}
		return count, nil
	}

	seen := make(map[domain.DataEntityID]struct{}, len(scope))
	for _, entityID := range scope {
		if _, dup := seen[entityID]; dup {
			continue
		}
		seen[entityID] = struct{}{}
		for alertID := range r.byEntity[entityID] {
			if r.alerts[alertID].IsOpen() {
				count++
			}
		}
	}
	return count, nil
}

// Clear removes all data from the repository. Useful for test cleanup.
func (r *AlertRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = make(map[domain.AlertID]*domain.Alert)
	r.byEntity = make(map[domain.DataEntityID]map[domain.AlertID]struct{})
}

// sortAlerts orders newest first, ties broken by id.
func sortAlerts(alerts []*domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
		}
		return alerts[i].ID < alerts[j].ID
	})
}
