package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Name:          req.Name,
		Description:   req.Description,
		Priority:      req.Priority,
		DepartmentID:  req.DepartmentID,
		CategoryID:    req.CategoryID,
		ReviewerID:    req.ReviewerID,
		TargetUserIDs: req.TargetUserIDs,
		DueDate:       req.DueDate,
		IsPrivate:     req.IsPrivate,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.FindMany(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// ListReceived GET /tickets/received.
func (h *TicketsHandler) ListReceived(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.FindByReceived(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// ListArchived GET /tickets/archived.
func (h *TicketsHandler) ListArchived(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.FindArchived(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// ListByDepartment GET /departments/:id/tickets.
func (h *TicketsHandler) ListByDepartment(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.FindByDepartment(c.UserContext(), actor, c.Params("id"), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// ListByTargetUser GET /users/:id/tickets.
func (h *TicketsHandler) ListByTargetUser(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.FindByTargetUser(c.UserContext(), actor, c.Params("id"), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// GetByCode GET /tickets/code/:customId.
func (h *TicketsHandler) GetByCode(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.FindByCustomID(c.UserContext(), actor, c.Params("customId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.FindByID(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	updates, err := h.service.ListUpdates(c.UserContext(), actor, ticket.ID)
	if err != nil {
		return err
	}
	files, err := h.service.ListFiles(c.UserContext(), actor, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, updates, files)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, c.Params("id"), service.TicketMetadataInput{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		IsPrivate:   req.IsPrivate,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Accept POST /tickets/:id/accept.
func (h *TicketsHandler) Accept(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.Accept)
}

// Approve POST /tickets/:id/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.Approve)
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return util.NewValidationError("status required", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Reject POST /tickets/:id/reject.
func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	actor, req, err := reasonRequest(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Reject(c.UserContext(), actor, c.Params("id"), req.Reason, req.Details)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Cancel POST /tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	actor, req, err := reasonRequest(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Cancel(c.UserContext(), actor, c.Params("id"), req.Reason, req.Details)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// RequestCorrection POST /tickets/:id/request-correction.
func (h *TicketsHandler) RequestCorrection(c *fiber.Ctx) error {
	actor, req, err := reasonRequest(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.RequestCorrection(c.UserContext(), actor, c.Params("id"), req.Reason, req.Details, req.TargetUserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// SendToNext POST /tickets/:id/send-to-next.
func (h *TicketsHandler) SendToNext(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.service.SendToNextDepartment)
}

// ExecuteAction POST /tickets/:id/actions/:actionId.
func (h *TicketsHandler) ExecuteAction(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ExecuteStatusAction(c.UserContext(), actor, c.Params("id"), c.Params("actionId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UpdateAssignee PATCH /tickets/:id/assignees.
func (h *TicketsHandler) UpdateAssignee(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAssigneeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return util.NewValidationError("user_id required", nil)
	}
	ticket, err := h.service.UpdateAssignee(c.UserContext(), actor, c.Params("id"), req.Order, req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UpdateReviewer PATCH /tickets/:id/reviewer.
func (h *TicketsHandler) UpdateReviewer(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateReviewerRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.ReviewerID == "" {
		return util.NewValidationError("reviewer_id required", nil)
	}
	ticket, err := h.service.UpdateReviewer(c.UserContext(), actor, c.Params("id"), req.ReviewerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddFiles POST /tickets/:id/files.
func (h *TicketsHandler) AddFiles(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	var req dto.AddFilesRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	files := make([]service.FileInput, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, service.FileInput{
			StorageKey: f.StorageKey,
			FileName:   f.FileName,
			MimeType:   f.MimeType,
			SizeBytes:  f.SizeBytes,
		})
	}
	created, err := h.service.AddFiles(c.UserContext(), actor, c.Params("id"), files)
	if err != nil {
		return err
	}
	items := make([]dto.TicketFileResponse, 0, len(created))
	for _, f := range created {
		items = append(items, dto.TicketFileResponse{
			ID:        f.ID,
			FileName:  f.FileName,
			MimeType:  f.MimeType,
			SizeBytes: f.SizeBytes,
			CreatedAt: f.CreatedAt,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": items})
}

func (h *TicketsHandler) simpleTransition(c *fiber.Ctx, op func(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error)) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	ticket, err := op(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func requireUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, util.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func reasonRequest(c *fiber.Ctx) (*domain.User, *dto.ReasonRequest, error) {
	actor, err := requireUser(c)
	if err != nil {
		return nil, nil, err
	}
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, util.NewValidationError("invalid payload", nil)
	}
	return actor, &req, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.StatusKey(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                  ticket.ID,
		CustomID:            ticket.CustomID,
		Name:                ticket.Name,
		Status:              ticket.StatusKey,
		Priority:            ticket.Priority,
		IsPrivate:           ticket.IsPrivate,
		RequesterID:         ticket.RequesterID,
		DepartmentID:        ticket.DepartmentID,
		CurrentTargetUserID: ticket.CurrentTargetUserID,
		DueDate:             ticket.DueDate,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
}

func ticketSummaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return items
}

func ticketDetail(ticket *domain.Ticket, updates []domain.TicketUpdate, files []domain.TicketFile) dto.TicketDetailResponse {
	entries := make([]dto.TicketUpdateResponse, 0, len(updates))
	for _, u := range updates {
		entries = append(entries, dto.TicketUpdateResponse{
			ID:                      u.ID,
			PerformerID:             u.PerformerID,
			Action:                  u.Action,
			FromStatus:              u.FromStatus,
			ToStatus:                u.ToStatus,
			TimeSecondsInLastStatus: u.TimeSecondsInLastStatus,
			Description:             u.Description,
			CreatedAt:               u.CreatedAt,
		})
	}
	attachments := make([]dto.TicketFileResponse, 0, len(files))
	for _, f := range files {
		attachments = append(attachments, dto.TicketFileResponse{
			ID:        f.ID,
			FileName:  f.FileName,
			MimeType:  f.MimeType,
			SizeBytes: f.SizeBytes,
			CreatedAt: f.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		ID:                  ticket.ID,
		CustomID:            ticket.CustomID,
		Name:                ticket.Name,
		Description:         ticket.Description,
		Status:              ticket.StatusKey,
		Priority:            ticket.Priority,
		IsPrivate:           ticket.IsPrivate,
		RequesterID:         ticket.RequesterID,
		DepartmentID:        ticket.DepartmentID,
		CategoryID:          ticket.CategoryID,
		ReviewerID:          ticket.ReviewerID,
		CurrentTargetUserID: ticket.CurrentTargetUserID,
		DueDate:             ticket.DueDate,
		AcceptedAt:          ticket.AcceptedAt,
		CompletedAt:         ticket.CompletedAt,
		RejectedAt:          ticket.RejectedAt,
		CanceledAt:          ticket.CanceledAt,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
		Updates:             entries,
		Files:               attachments,
	}
}
