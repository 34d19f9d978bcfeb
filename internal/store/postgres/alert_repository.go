package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"alertcache/internal/domain"
)

const alertColumns = `id, type, status, description, data_entity_id, created_at, status_updated_at, status_updated_by`

// AlertRepository implements store.AlertRepository using PostgreSQL.
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new PostgreSQL-backed alert repository.
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Upsert inserts the alert or replaces the row with the same id.
func (r *AlertRepository) Upsert(ctx context.Context, alert *domain.Alert) error {
	if alert.ID == "" {
		return domain.ErrEmptyAlertID
	}
	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			description = EXCLUDED.description,
			data_entity_id = EXCLUDED.data_entity_id,
			created_at = EXCLUDED.created_at,
			status_updated_at = EXCLUDED.status_updated_at,
			status_updated_by = EXCLUDED.status_updated_by
	`

	_, err := r.db.pool.Exec(ctx, query,
		string(alert.ID),
		string(alert.Type),
		string(alert.Status),
		alert.Description,
		nullableString(string(alert.DataEntityID)),
		createdAt,
		alert.StatusUpdatedAt,
		alert.StatusUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by id.
func (r *AlertRepository) GetByID(ctx context.Context, id domain.AlertID) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	alert, err := scanAlert(r.db.pool.QueryRow(ctx, query, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// List returns one page of matching alerts and the total match count.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, int64, error) {
	var conditions []string
	var args []any

	if filter.DataEntityID != "" {
		args = append(args, string(filter.DataEntityID))
		conditions = append(conditions, fmt.Sprintf("data_entity_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `SELECT ` + alertColumns + ` FROM alerts` + where + ` ORDER BY created_at DESC, id ASC`
	if filter.Size > 0 {
		args = append(args, filter.Size)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset := filter.Offset(); offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// ListByDataEntity returns every alert of a data entity.
func (r *AlertRepository) ListByDataEntity(ctx context.Context, id domain.DataEntityID) ([]*domain.Alert, error) {
	if id == "" {
		return nil, domain.ErrEmptyDataEntityID
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE data_entity_id = $1 ORDER BY created_at DESC, id ASC`

	rows, err := r.db.pool.Query(ctx, query, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to list data entity alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// UpdateStatus changes the status of an alert and returns the updated row.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id domain.AlertID, status domain.AlertStatus, by string) (*domain.Alert, error) {
	query := `
		UPDATE alerts SET
			status = $2,
			status_updated_at = $3,
			status_updated_by = $4
		WHERE id = $1
		RETURNING ` + alertColumns

	row := r.db.pool.QueryRow(ctx, query, string(id), string(status), time.Now().UTC(), by)

	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to update alert status: %w", err)
	}
	return alert, nil
}

// CountOpen counts open alerts, optionally restricted to a set of entities.
func (r *AlertRepository) CountOpen(ctx context.Context, scope []domain.DataEntityID) (int64, error) {
	query := `SELECT COUNT(*) FROM alerts WHERE status = $1`
	args := []any{string(domain.AlertStatusOpen)}

	if scope != nil {
		if len(scope) == 0 {
			return 0, nil
		}
		ids := make([]string, len(scope))
		for i, id := range scope {
			ids[i] = string(id)
		}
		query += ` AND data_entity_id = ANY($2)`
		args = append(args, ids)
	}

	var count int64
	if err := r.db.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open alerts: %w", err)
	}
	return count, nil
}

// scanAlert scans a single row into an Alert.
func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var (
		alert        domain.Alert
		id           string
		alertType    string
		status       string
		dataEntityID *string
	)

	err := row.Scan(
		&id,
		&alertType,
		&status,
		&alert.Description,
		&dataEntityID,
		&alert.CreatedAt,
		&alert.StatusUpdatedAt,
		&alert.StatusUpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	alert.ID = domain.AlertID(id)
	alert.Type = domain.AlertType(alertType)
	alert.Status = domain.AlertStatus(status)
	if dataEntityID != nil {
		alert.DataEntityID = domain.DataEntityID(*dataEntityID)
	}
	return &alert, nil
}

// scanAlerts scans multiple rows into a slice of Alerts.
func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	alerts := []*domain.Alert{}

	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// nullableString returns nil if the string is empty, otherwise returns a pointer to it.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
