package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"alertcache/internal/alertstore"
	"alertcache/internal/domain"
	"alertcache/internal/session"
)

// SessionHandler creates and disposes sessions and serves reads from their stores.
type SessionHandler struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(registry *session.Registry, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   logger,
	}
}

// alertsView is the list read: records in list order plus the cursor.
type alertsView struct {
	Items    []domain.Alert  `json:"items"`
	PageInfo domain.PageInfo `json:"pageInfo"`
}

// dataEntityView is the per-entity read.
type dataEntityView struct {
	DataEntityID domain.DataEntityID `json:"dataEntityId"`
	Fetched      bool                `json:"fetched"`
	Items        []domain.Alert      `json:"items"`
}

// integrityView reports the referential integrity check of a store.
type integrityView struct {
	OK         bool             `json:"ok"`
	Records    int              `json:"records"`
	Listed     int              `json:"listed"`
	Entities   int              `json:"entities"`
	DanglingID []domain.AlertID `json:"danglingIds"`
}

// Create handles POST /v1/sessions
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	id, _ := h.registry.Create()
	h.logger.Debug("session started", "session_id", id)
	return Created(c, map[string]string{"sessionId": id})
}

// Delete handles DELETE /v1/sessions/:sid
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	if err := h.registry.Close(c.Params("sid")); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return NotFound(c, "session not found")
		}
		h.logger.Error("failed to close session", "error", err)
		return InternalError(c, "failed to close session")
	}
	return NoContent(c)
}

// state resolves the current store snapshot of the session in the path.
func (h *SessionHandler) state(c *fiber.Ctx) (alertstore.State, bool) {
	store, err := h.registry.Get(c.Params("sid"))
	if err != nil {
		return alertstore.State{}, false
	}
	return store.State(), true
}

// Alerts handles GET /v1/sessions/:sid/alerts
func (h *SessionHandler) Alerts(c *fiber.Ctx) error {
	state, ok := h.state(c)
	if !ok {
		return NotFound(c, "session not found")
	}
	return Success(c, alertsView{Items: state.Alerts(), PageInfo: state.PageInfo()})
}

// Alert handles GET /v1/sessions/:sid/alerts/:id
func (h *SessionHandler) Alert(c *fiber.Ctx) error {
	state, ok := h.state(c)
	if !ok {
		return NotFound(c, "session not found")
	}
	alert, found := state.Alert(domain.AlertID(c.Params("id")))
	if !found {
		return NotFound(c, "alert not found")
	}
	return Success(c, alert)
}

// Totals handles GET /v1/sessions/:sid/totals
func (h *SessionHandler) Totals(c *fiber.Ctx) error {
	state, ok := h.state(c)
	if !ok {
		return NotFound(c, "session not found")
	}
	return Success(c, state.Totals())
}

// PageInfo handles GET /v1/sessions/:sid/page-info
func (h *SessionHandler) PageInfo(c *fiber.Ctx) error {
	state, ok := h.state(c)
	if !ok {
		return NotFound(c, "session not found")
	}
	return Success(c, state.PageInfo())
}

// DataEntityAlerts handles GET /v1/sessions/:sid/data-entities/:eid/alerts
// An entity that was never refreshed yields an empty list with fetched=false.
func (h *SessionHandler) DataEntityAlerts(c *fiber.Ctx) error {
	state, ok := h.state(c)
	if !ok {
		return NotFound(c, "session not found")
	}
	entityID := domain.DataEntityID(c.Params("eid"))
	_, fetched := state.DataEntityAlertIDs(entityID)
	return Success(c, dataEntityView{
		DataEntityID: entityID,
		Fetched:      fetched,
		Items:        state.DataEntityAlerts(entityID),
	})
}

// Integrity handles GET /v1/sessions/:sid/integrity
func (h *SessionHandler) Integrity(c *fiber.Ctx) error {
	state, ok := h.state(c)
	if !ok {
		return NotFound(c, "session not found")
	}
	dangling := alertstore.Dangling(state)
	return Success(c, integrityView{
		OK:         len(dangling) == 0,
		Records:    state.Len(),
		Listed:     len(state.AllIDs()),
		Entities:   len(state.DataEntityIDs()),
		DanglingID: dangling,
	})
}

// Snapshot handles GET /v1/sessions/:sid/snapshot
// It returns the raw normalized state for debugging.
func (h *SessionHandler) Snapshot(c *fiber.Ctx) error {
	state, ok := h.state(c)
	if !ok {
		return NotFound(c, "session not found")
	}
	return Success(c, state.Snapshot())
}
