// Package store defines the persistence interfaces behind the fetcher.
// The alert repository is the authoritative alert list that session stores
// cache; the ownership store scopes totals to a caller.
package store

import (
	"context"

	"alertcache/internal/domain"
)

// AlertRepository defines the interface for persistent alert storage.
// Implementations order lists by creation time, newest first, then by id.
type AlertRepository interface {
	// Upsert creates the alert or replaces the stored record with the same id.
	Upsert(ctx context.Context, alert *domain.Alert) error

	// GetByID retrieves an alert. Returns domain.ErrAlertNotFound if missing.
	GetByID(ctx context.Context, id domain.AlertID) (*domain.Alert, error)

	// List returns one page of alerts matching the filter and the number of
	// matching alerts across all pages.
	List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, int64, error)

	// ListByDataEntity returns every alert raised against a data entity.
	ListByDataEntity(ctx context.Context, id domain.DataEntityID) ([]*domain.Alert, error)

	// UpdateStatus changes the status of an alert and returns the updated record.
	UpdateStatus(ctx context.Context, id domain.AlertID, status domain.AlertStatus, by string) (*domain.Alert, error)

	// CountOpen counts open alerts. A nil scope counts every alert; otherwise
	// only alerts on the listed data entities are counted.
	CountOpen(ctx context.Context, scope []domain.DataEntityID) (int64, error)
}

// OwnershipStore records which data entities an owner owns or depends on.
// All methods must be safe for concurrent use.
type OwnershipStore interface {
	// Assign links an entity to an owner, replacing any previous relation.
	Assign(ctx context.Context, o domain.Ownership) error

	// Unassign removes every relation between the owner and the entity.
	Unassign(ctx context.Context, owner string, id domain.DataEntityID) error

	// Entities returns the entities tied to owner by relation, sorted.
	// The result is never nil.
	Entities(ctx context.Context, owner string, relation domain.Relation) ([]domain.DataEntityID, error)

	// Close releases any resources held by the store.
	Close() error
}
