package api

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"alertcache/internal/config"
	"alertcache/internal/domain"
	"alertcache/internal/fetch"
	"alertcache/internal/session"
)

// RefreshHandler triggers fetches for a session.
// Each request returns 202 Accepted once the events are queued; the store
// changes when the processor applies them.
type RefreshHandler struct {
	service  *fetch.Service
	registry *session.Registry
	paging   config.FetchConfig
	logger   *slog.Logger
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(service *fetch.Service, registry *session.Registry, paging config.FetchConfig, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{
		service:  service,
		registry: registry,
		paging:   paging,
		logger:   logger,
	}
}

// Refresh handles POST /v1/sessions/:sid/refresh?page=&size=&owner=
// It refreshes the totals and one page of the full list.
func (h *RefreshHandler) Refresh(c *fiber.Ctx) error {
	sid := c.Params("sid")
	if !h.sessionExists(sid) {
		return NotFound(c, "session not found")
	}

	page, size, err := h.parsePaging(c)
	if err != nil {
		return ValidationError(c, err.Error())
	}

	if err := h.service.RefreshTotals(c.Context(), sid, c.Query("owner")); err != nil {
		return h.fetchError(c, err)
	}
	if err := h.service.RefreshList(c.Context(), sid, page, size); err != nil {
		return h.fetchError(c, err)
	}

	return Accepted(c, map[string]any{
		"status": "accepted",
		"page":   page,
		"size":   size,
	})
}

// RefreshDataEntity handles POST /v1/sessions/:sid/data-entities/:eid/refresh
func (h *RefreshHandler) RefreshDataEntity(c *fiber.Ctx) error {
	sid := c.Params("sid")
	if !h.sessionExists(sid) {
		return NotFound(c, "session not found")
	}

	entityID := domain.DataEntityID(c.Params("eid"))
	if err := h.service.RefreshDataEntity(c.Context(), sid, entityID); err != nil {
		return h.fetchError(c, err)
	}

	return Accepted(c, map[string]string{
		"status":       "accepted",
		"dataEntityId": string(entityID),
	})
}

// UpdateStatus handles PUT /v1/sessions/:sid/alerts/:id/status
func (h *RefreshHandler) UpdateStatus(c *fiber.Ctx) error {
	sid := c.Params("sid")
	if !h.sessionExists(sid) {
		return NotFound(c, "session not found")
	}

	var req domain.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse status body", "error", err)
		return BadRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ValidationError(c, err.Error())
	}

	alertID := domain.AlertID(c.Params("id"))
	if err := h.service.UpdateStatus(c.Context(), sid, alertID, req); err != nil {
		return h.fetchError(c, err)
	}

	return Accepted(c, map[string]string{
		"status":  "accepted",
		"alertId": string(alertID),
	})
}

func (h *RefreshHandler) sessionExists(sid string) bool {
	_, err := h.registry.Get(sid)
	return err == nil
}

// parsePaging reads page and size, applying the configured default and cap.
func (h *RefreshHandler) parsePaging(c *fiber.Ctx) (page, size int, err error) {
	size = h.paging.DefaultPageSize
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 0 {
			return 0, 0, errors.New("page must be a non-negative integer")
		}
	}
	if raw := c.Query("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return 0, 0, errors.New("size must be a positive integer")
		}
	}
	size = min(size, h.paging.MaxPageSize)
	if !domain.ValidPage(page, size) {
		return 0, 0, errors.New("page is out of range")
	}
	return page, size, nil
}

// fetchError maps fetch failures to responses.
func (h *RefreshHandler) fetchError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrAlertNotFound):
		return NotFound(c, "alert not found")
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrEmptyAlertID),
		errors.Is(err, domain.ErrEmptyDataEntityID):
		return ValidationError(c, err.Error())
	case errors.Is(err, fetch.ErrPublishFailed):
		return Unavailable(c, "event queue unavailable")
	default:
		h.logger.Error("fetch failed", "error", err)
		return InternalError(c, "failed to fetch alerts")
	}
}
