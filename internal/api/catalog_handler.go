package api

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"alertcache/internal/domain"
	"alertcache/internal/store"
)

// CatalogHandler manages the authoritative alert repository and ownership
// records that session fetches read from.
type CatalogHandler struct {
	repo       store.AlertRepository
	ownerships store.OwnershipStore
	logger     *slog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(repo store.AlertRepository, ownerships store.OwnershipStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		repo:       repo,
		ownerships: ownerships,
		logger:     logger,
	}
}

// UpsertAlert handles PUT /v1/alerts/:id
func (h *CatalogHandler) UpsertAlert(c *fiber.Ctx) error {
	var alert domain.Alert
	if err := c.BodyParser(&alert); err != nil {
		h.logger.Debug("failed to parse alert body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	alert.ID = domain.AlertID(c.Params("id"))
	if alert.Status == "" {
		alert.Status = domain.AlertStatusOpen
	}
	if !alert.Status.IsValid() {
		return ValidationError(c, domain.ErrInvalidStatus.Error())
	}

	if err := h.repo.Upsert(c.Context(), &alert); err != nil {
		if errors.Is(err, domain.ErrEmptyAlertID) {
			return ValidationError(c, err.Error())
		}
		h.logger.Error("failed to upsert alert", "alert_id", alert.ID, "error", err)
		return InternalError(c, "failed to store alert")
	}

	stored, err := h.repo.GetByID(c.Context(), alert.ID)
	if err != nil {
		h.logger.Error("failed to read back alert", "alert_id", alert.ID, "error", err)
		return InternalError(c, "failed to store alert")
	}
	return Success(c, stored)
}

// List handles GET /v1/alerts
// Query parameters: data_entity_id, status, page, size.
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	filter := domain.AlertFilter{
		DataEntityID: domain.DataEntityID(c.Query("data_entity_id")),
		Status:       domain.AlertStatus(c.Query("status")),
		Size:         100,
	}

	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p >= 0 {
			filter.Page = p
		}
	}
	if size := c.Query("size"); size != "" {
		if s, err := strconv.Atoi(size); err == nil && s > 0 {
			filter.Size = s
		}
	}

	if !domain.ValidPage(filter.Page, filter.Size) {
		return ValidationError(c, "page is out of range")
	}

	alerts, total, err := h.repo.List(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		return InternalError(c, "failed to list alerts")
	}

	items := make([]domain.Alert, len(alerts))
	for i, a := range alerts {
		items[i] = *a
	}
	pageInfo := domain.NewPageInfo(total, filter.Page, filter.Size)
	return Success(c, domain.AlertList{Items: items, PageInfo: &pageInfo})
}

// GetByID handles GET /v1/alerts/:id
func (h *CatalogHandler) GetByID(c *fiber.Ctx) error {
	id := domain.AlertID(c.Params("id"))

	alert, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return NotFound(c, "alert not found")
		}
		h.logger.Error("failed to get alert", "alert_id", id, "error", err)
		return InternalError(c, "failed to get alert")
	}

	return Success(c, alert)
}

// Assign handles PUT /v1/owners/:owner/data-entities/:eid
// Body: {"relation": "owned" | "dependent"}.
func (h *CatalogHandler) Assign(c *fiber.Ctx) error {
	var body struct {
		Relation domain.Relation `json:"relation"`
	}
	if err := c.BodyParser(&body); err != nil {
		return BadRequest(c, "invalid request body")
	}

	o := domain.Ownership{
		Owner:        c.Params("owner"),
		DataEntityID: domain.DataEntityID(c.Params("eid")),
		Relation:     body.Relation,
	}
	if err := o.Validate(); err != nil {
		return ValidationError(c, err.Error())
	}

	if err := h.ownerships.Assign(c.Context(), o); err != nil {
		h.logger.Error("failed to assign data entity", "owner", o.Owner, "error", err)
		return InternalError(c, "failed to assign data entity")
	}
	return Success(c, o)
}

// Unassign handles DELETE /v1/owners/:owner/data-entities/:eid
func (h *CatalogHandler) Unassign(c *fiber.Ctx) error {
	owner := c.Params("owner")
	if err := h.ownerships.Unassign(c.Context(), owner, domain.DataEntityID(c.Params("eid"))); err != nil {
		h.logger.Error("failed to unassign data entity", "owner", owner, "error", err)
		return InternalError(c, "failed to unassign data entity")
	}
	return NoContent(c)
}

// Entities handles GET /v1/owners/:owner/data-entities?relation=
func (h *CatalogHandler) Entities(c *fiber.Ctx) error {
	relation := domain.Relation(c.Query("relation", string(domain.RelationOwned)))
	if !relation.IsValid() {
		return ValidationError(c, domain.ErrInvalidRelation.Error())
	}

	ids, err := h.ownerships.Entities(c.Context(), c.Params("owner"), relation)
	if err != nil {
		h.logger.Error("failed to list data entities", "error", err)
		return InternalError(c, "failed to list data entities")
	}
	return Success(c, ids)
}
