// Package domain contains the core records of the alert cache.
// These models are shared by the store, the repositories and the HTTP API.
package domain

import (
	"errors"
	"math"
	"time"
)

// Errors returned by repositories and request validation.
var (
	ErrAlertNotFound     = errors.New("alert not found")
	ErrEmptyAlertID      = errors.New("alert id is required")
	ErrEmptyDataEntityID = errors.New("data entity id is required")
	ErrInvalidStatus     = errors.New("status must be 'OPEN' or 'RESOLVED'")
)

// AlertID uniquely identifies an alert.
type AlertID string

// DataEntityID identifies the catalog entity (dataset, job, ...) an alert was raised against.
type DataEntityID string

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	// AlertStatusOpen indicates the alert still needs attention.
	AlertStatusOpen AlertStatus = "OPEN"
	// AlertStatusResolved indicates the alert was acknowledged and closed.
	AlertStatusResolved AlertStatus = "RESOLVED"
)

// IsValid returns true if the status is a known value.
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusOpen, AlertStatusResolved:
		return true
	default:
		return false
	}
}

// AlertType classifies what kind of check raised the alert.
type AlertType string

const (
	AlertTypeBackwardsIncompatibleSchema AlertType = "BACKWARDS_INCOMPATIBLE_SCHEMA"
	AlertTypeFailedDQTest                AlertType = "FAILED_DQ_TEST"
	AlertTypeFailedJob                   AlertType = "FAILED_JOB"
	AlertTypeDistributionAnomaly         AlertType = "DISTRIBUTION_ANOMALY"
)

// Alert is a single alert record as delivered by the catalog API.
type Alert struct {
	// ID is the unique identifier of the alert.
	ID AlertID `json:"id"`

	// Type is the check category that raised the alert.
	Type AlertType `json:"type,omitempty"`

	// Status is OPEN or RESOLVED.
	Status AlertStatus `json:"status"`

	// Description is a human-readable explanation of the alert.
	Description string `json:"description,omitempty"`

	// DataEntityID references the owning data entity. It may be empty on
	// records that only reach the cache through the per-entity index.
	DataEntityID DataEntityID `json:"dataEntityId,omitempty"`

	// CreatedAt is when the alert was raised.
	CreatedAt time.Time `json:"createdAt"`

	// StatusUpdatedAt is when the status last changed. Nil if never changed.
	StatusUpdatedAt *time.Time `json:"statusUpdatedAt,omitempty"`

	// StatusUpdatedBy names the owner who last changed the status.
	StatusUpdatedBy string `json:"statusUpdatedBy,omitempty"`
}

// WithStatus returns a copy of the alert with only the status replaced.
func (a Alert) WithStatus(status AlertStatus) Alert {
	a.Status = status
	return a
}

// IsOpen returns true if the alert still needs attention.
func (a *Alert) IsOpen() bool {
	return a.Status == AlertStatusOpen
}

// AlertFilter contains criteria for listing alerts from a repository.
type AlertFilter struct {
	DataEntityID DataEntityID
	Status       AlertStatus
	Page         int // 0-based
	Size         int
}

// Offset returns the number of records to skip for the filter's page.
// Pages past math.MaxInt records clamp to math.MaxInt.
func (f AlertFilter) Offset() int {
	if f.Page <= 0 || f.Size <= 0 {
		return 0
	}
	if f.Page > math.MaxInt/f.Size {
		return math.MaxInt
	}
	return f.Page * f.Size
}

// ValidPage reports whether page and size address a reachable offset.
func ValidPage(page, size int) bool {
	return page >= 0 && size > 0 && page <= math.MaxInt/size
}

// UpdateStatusRequest is the input for changing an alert's status.
type UpdateStatusRequest struct {
	Status    AlertStatus `json:"status"`
	UpdatedBy string      `json:"updatedBy"`
}

// Validate checks the request has a known status.
func (r *UpdateStatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}
