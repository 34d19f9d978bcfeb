package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"alertcache/internal/domain"
)

func seedAlerts(t *testing.T, r *AlertRepository) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	alerts := []domain.Alert{
		{ID: "a-1", Status: domain.AlertStatusOpen, DataEntityID: "de-1", CreatedAt: base},
		{ID: "a-2", Status: domain.AlertStatusOpen, DataEntityID: "de-1", CreatedAt: base.Add(time.Minute)},
		{ID: "a-3", Status: domain.AlertStatusResolved, DataEntityID: "de-2", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "a-4", Status: domain.AlertStatusOpen, DataEntityID: "de-2", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "a-5", Status: domain.AlertStatusOpen, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range alerts {
		if err := r.Upsert(context.Background(), &alerts[i]); err != nil {
			t.Fatalf("Upsert error: %v", err)
		}
	}
}

func alertIDs(alerts []*domain.Alert) []domain.AlertID {
	out := make([]domain.AlertID, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ID)
	}
	return out
}

func equalIDs(a, b []domain.AlertID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAlertRepository_UpsertAndGet(t *testing.T) {
	r := NewAlertRepository()
	ctx := context.Background()

	alert := &domain.Alert{ID: "a-1", Status: domain.AlertStatusOpen, Description: "first"}
	if err := r.Upsert(ctx, alert); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	// Mutating the input must not change the stored record.
	alert.Description = "mutated"

	got, err := r.GetByID(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Description != "first" {
		t.Errorf("Description = %q, want first", got.Description)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}

	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrAlertNotFound) {
		t.Errorf("GetByID(missing) error = %v, want %v", err, domain.ErrAlertNotFound)
	}
	if err := r.Upsert(ctx, &domain.Alert{}); !errors.Is(err, domain.ErrEmptyAlertID) {
		t.Errorf("Upsert(empty id) error = %v, want %v", err, domain.ErrEmptyAlertID)
	}
}

func TestAlertRepository_List(t *testing.T) {
	r := NewAlertRepository()
	seedAlerts(t, r)
	ctx := context.Background()

	tests := []struct {
		name      string
		filter    domain.AlertFilter
		wantIDs   []domain.AlertID
		wantTotal int64
	}{
		{"all newest first", domain.AlertFilter{}, []domain.AlertID{"a-5", "a-3", "a-4", "a-2", "a-1"}, 5},
		{"first page", domain.AlertFilter{Page: 0, Size: 2}, []domain.AlertID{"a-5", "a-3"}, 5},
		{"last page", domain.AlertFilter{Page: 2, Size: 2}, []domain.AlertID{"a-1"}, 5},
		{"past the end", domain.AlertFilter{Page: 5, Size: 2}, []domain.AlertID{}, 5},
		{"overflowing page", domain.AlertFilter{Page: math.MaxInt64 / 2, Size: 4}, []domain.AlertID{}, 5},
		{"max page", domain.AlertFilter{Page: math.MaxInt, Size: 1}, []domain.AlertID{}, 5},
		{"max size", domain.AlertFilter{Page: 1, Size: math.MaxInt}, []domain.AlertID{}, 5},
		{"max size first page", domain.AlertFilter{Size: math.MaxInt}, []domain.AlertID{"a-5", "a-3", "a-4", "a-2", "a-1"}, 5},
		{"by entity", domain.AlertFilter{DataEntityID: "de-1"}, []domain.AlertID{"a-2", "a-1"}, 2},
		{"by status", domain.AlertFilter{Status: domain.AlertStatusResolved}, []domain.AlertID{"a-3"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := r.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if got := alertIDs(items); !equalIDs(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestAlertRepository_ListByDataEntity(t *testing.T) {
	r := NewAlertRepository()
	seedAlerts(t, r)
	ctx := context.Background()

	items, err := r.ListByDataEntity(ctx, "de-2")
	if err != nil {
		t.Fatalf("ListByDataEntity error: %v", err)
	}
	if got := alertIDs(items); !equalIDs(got, []domain.AlertID{"a-3", "a-4"}) {
		t.Errorf("ids = %v", got)
	}

	// Moving an alert to another entity reindexes it.
	_ = r.Upsert(ctx, &domain.Alert{ID: "a-3", Status: domain.AlertStatusOpen, DataEntityID: "de-1"})
	items, _ = r.ListByDataEntity(ctx, "de-2")
	if got := alertIDs(items); !equalIDs(got, []domain.AlertID{"a-4"}) {
		t.Errorf("ids after move = %v", got)
	}

	items, _ = r.ListByDataEntity(ctx, "unknown")
	if len(items) != 0 {
		t.Errorf("unknown entity returned %d items", len(items))
	}
	if _, err := r.ListByDataEntity(ctx, ""); !errors.Is(err, domain.ErrEmptyDataEntityID) {
		t.Errorf("ListByDataEntity(empty) error = %v, want %v", err, domain.ErrEmptyDataEntityID)
	}
}

func TestAlertRepository_UpdateStatus(t *testing.T) {
	r := NewAlertRepository()
	seedAlerts(t, r)
	ctx := context.Background()

	updated, err := r.UpdateStatus(ctx, "a-1", domain.AlertStatusResolved, "alice")
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if updated.Status != domain.AlertStatusResolved || updated.StatusUpdatedBy != "alice" || updated.StatusUpdatedAt == nil {
		t.Errorf("updated = %+v", updated)
	}

	stored, _ := r.GetByID(ctx, "a-1")
	if stored.Status != domain.AlertStatusResolved {
		t.Errorf("stored Status = %v, want %v", stored.Status, domain.AlertStatusResolved)
	}

	if _, err := r.UpdateStatus(ctx, "missing", domain.AlertStatusOpen, "alice"); !errors.Is(err, domain.ErrAlertNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want %v", err, domain.ErrAlertNotFound)
	}
}

func TestAlertRepository_CountOpen(t *testing.T) {
	r := NewAlertRepository()
	seedAlerts(t, r)
	ctx := context.Background()

	tests := []struct {
		name  string
		scope []domain.DataEntityID
		want  int64
	}{
		{"all", nil, 4},
		{"empty scope", []domain.DataEntityID{}, 0},
		{"one entity", []domain.DataEntityID{"de-1"}, 2},
		{"skips resolved", []domain.DataEntityID{"de-2"}, 1},
		{"duplicates counted once", []domain.DataEntityID{"de-1", "de-1"}, 2},
		{"unknown entity", []domain.DataEntityID{"de-9"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.CountOpen(ctx, tt.scope)
			if err != nil {
				t.Fatalf("CountOpen error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CountOpen() = %d, want %d", got, tt.want)
			}
		})
	}
}
