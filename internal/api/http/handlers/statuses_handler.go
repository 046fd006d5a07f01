package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// StatusesHandler manages the status catalog and its actions.
type StatusesHandler struct {
	service *service.CatalogService
}

// NewStatusesHandler constructs handler.
func NewStatusesHandler(catalogService *service.CatalogService) *StatusesHandler {
	return &StatusesHandler{service: catalogService}
}

// ListStatuses GET /statuses.
func (h *StatusesHandler) ListStatuses(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	statuses, err := h.service.ListStatuses(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, statusResponse(s))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateStatus POST /statuses.
func (h *StatusesHandler) CreateStatus(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	status, err := h.service.CreateStatus(c.UserContext(), actor, req.Key, req.Label)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": statusResponse(*status)})
}

// SeedStatuses POST /statuses/seed. Idempotent; backfills any missing
// built-in status for the caller's tenant.
func (h *StatusesHandler) SeedStatuses(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.service.SeedDefaults(c.UserContext(), actor.TenantID); err != nil {
		return err
	}
	statuses, err := h.service.ListStatuses(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, statusResponse(s))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListActions GET /status-actions.
func (h *StatusesHandler) ListActions(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	actions, err := h.service.ListActions(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.StatusActionResponse, 0, len(actions))
	for _, a := range actions {
		items = append(items, actionResponse(a))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAction POST /status-actions.
func (h *StatusesHandler) CreateAction(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateStatusActionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	action, err := h.service.CreateAction(c.UserContext(), actor, req.FromStatusID, req.ToStatusID, req.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": actionResponse(*action)})
}

// DeleteAction DELETE /status-actions/:id.
func (h *StatusesHandler) DeleteAction(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteAction(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func statusResponse(s domain.Status) dto.StatusResponse {
	return dto.StatusResponse{
		ID:        s.ID,
		Key:       s.Key,
		Label:     s.Label,
		IsDefault: s.IsDefault,
		CreatedAt: s.CreatedAt,
	}
}

func actionResponse(a domain.StatusAction) dto.StatusActionResponse {
	return dto.StatusActionResponse{
		ID:           a.ID,
		FromStatusID: a.FromStatusID,
		ToStatusID:   a.ToStatusID,
		Title:        a.Title,
		CreatedAt:    a.CreatedAt,
	}
}
