package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// Notifier is the fan-out contract consumed by the workflow engine.
// Dispatch delivers already-persisted notifications after commit;
// SendEmailIfEnabled checks the tenant permission flag and never fails the
// caller.
type Notifier interface {
	Dispatch(ctx context.Context, notifications []domain.Notification)
	SendEmailIfEnabled(ctx context.Context, tenantID, subject, body string, userIDs []string)
}

// TicketService coordinates the ticket lifecycle: creation with
// tenant-scoped sequential codes, list queries under the shared visibility
// policy, and non-status metadata updates. Status transitions live in
// workflow.go, chain operations in chain.go.
type TicketService struct {
	store    repository.Store
	notifier Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(store repository.Store, notifier Notifier, metrics *observability.Metrics, logger *zap.Logger) *TicketService {
	return &TicketService{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Name          string
	Description   string
	Priority      domain.TicketPriority
	DepartmentID  *string
	CategoryID    *string
	ReviewerID    *string
	TargetUserIDs []string
	DueDate       *time.Time
	IsPrivate     bool
}

// TicketListFilter describes list-query parameters.
type TicketListFilter struct {
	Statuses   []domain.StatusKey
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketMetadataInput carries non-status field updates. Status changes go
// through the workflow operations only.
type TicketMetadataInput struct {
	Name        *string
	Description *string
	Priority    *domain.TicketPriority
	DueDate     *time.Time
	IsPrivate   *bool
	CategoryID  *string
}

// FileInput defines attachment metadata.
type FileInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// CreateTicket creates a ticket in Pending with its target-user chain and
// a tenant-sequential code. The sequence read runs under a per-tenant
// advisory lock so concurrent creations never share a number.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, util.NewValidationError("name required", nil)
	}
	if len(input.TargetUserIDs) == 0 {
		return nil, util.NewValidationError("at least one target user required", nil)
	}

	tenant, err := s.store.Tenants().GetByID(ctx, actor.TenantID)
	if err != nil {
		if util.IsNoRows(err) {
			return nil, util.NewNotFound(util.CodeTenantNotFound, "tenant not found", nil)
		}
		return nil, util.MapError(err)
	}
	if err := s.resolveActiveUsers(ctx, actor.TenantID, input.TargetUserIDs); err != nil {
		return nil, err
	}
	if input.ReviewerID != nil {
		if err := s.resolveActiveUsers(ctx, actor.TenantID, []string{*input.ReviewerID}); err != nil {
			return nil, err
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	var (
		ticket        *domain.Ticket
		notifications []domain.Notification
	)
	err = s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		if err := st.LockTenantSequence(ctx, actor.TenantID); err != nil {
			return err
		}
		last, err := st.Tickets().LastCustomID(ctx, actor.TenantID)
		if err != nil {
			return err
		}
		customID := fmt.Sprintf("%s-%d", tenant.CustomKey, nextSequence(last))

		pending, err := st.Statuses().GetByKey(ctx, actor.TenantID, domain.StatusPending)
		if err != nil {
			if util.IsNoRows(err) {
				return util.NewNotFound(util.CodeStatusNotFound, "pending status missing for tenant", nil)
			}
			return err
		}

		firstTarget := input.TargetUserIDs[0]
		ticket = &domain.Ticket{
			TenantID:            actor.TenantID,
			CustomID:            customID,
			Name:                strings.TrimSpace(input.Name),
			Description:         strings.TrimSpace(input.Description),
			Priority:            priority,
			IsPrivate:           input.IsPrivate,
			RequesterID:         actor.ID,
			DepartmentID:        input.DepartmentID,
			CategoryID:          input.CategoryID,
			ReviewerID:          input.ReviewerID,
			StatusID:            pending.ID,
			StatusKey:           domain.StatusPending,
			CurrentTargetUserID: &firstTarget,
			DueDate:             input.DueDate,
		}
		if err := st.Tickets().Create(ctx, ticket); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return util.NewConflict(util.CodeDuplicateCustomID, "ticket code already allocated", map[string]any{"custom_id": customID})
			}
			return err
		}
		if _, err := st.TargetUsers().CreateChain(ctx, actor.TenantID, ticket.ID, input.TargetUserIDs); err != nil {
			return err
		}
		if err := st.Updates().Append(ctx, &domain.TicketUpdate{
			TenantID:    actor.TenantID,
			TicketID:    ticket.ID,
			PerformerID: actor.ID,
			Action:      domain.ActionCreation,
			ToStatus:    domain.StatusPending,
			Description: fmt.Sprintf("Ticket %s created", customID),
		}); err != nil {
			return err
		}
		for _, targetID := range input.TargetUserIDs {
			if targetID == actor.ID {
				continue
			}
			notifications = append(notifications, domain.Notification{
				TenantID:         actor.TenantID,
				UserID:           targetID,
				Type:             domain.NotificationTicketAssigned,
				Message:          fmt.Sprintf("Ticket %s was assigned to you", customID),
				ResourceID:       ticket.ID,
				ResourceCustomID: customID,
			})
		}
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}

	s.metrics.RecordTransition("", string(domain.StatusPending))
	s.notifier.Dispatch(ctx, notifications)
	s.notifier.SendEmailIfEnabled(ctx, actor.TenantID,
		fmt.Sprintf("New ticket %s", ticket.CustomID),
		fmt.Sprintf("<p>Ticket <b>%s</b> (%s) was assigned to you.</p>", ticket.CustomID, ticket.Name),
		[]string{input.TargetUserIDs[0]})
	return ticket, nil
}

// FindByID fetches a ticket; private tickets are hidden from users outside
// the requester, reviewer and chain.
func (s *TicketService) FindByID(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, s.store, actor.TenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsPrivate {
		involved, err := s.isInvolved(ctx, actor, ticket)
		if err != nil {
			return nil, err
		}
		if !involved {
			return nil, util.NewNotFound(util.CodeTicketNotFound, "ticket not found", nil)
		}
	}
	return ticket, nil
}

// FindByCustomID resolves a ticket by its human-readable code.
func (s *TicketService) FindByCustomID(ctx context.Context, actor *domain.User, customID string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByCustomID(ctx, actor.TenantID, customID)
	if err != nil {
		if util.IsNoRows(err) {
			return nil, util.NewNotFound(util.CodeTicketNotFound, "ticket not found", map[string]any{"custom_id": customID})
		}
		return nil, util.MapError(err)
	}
	return s.FindByID(ctx, actor, ticket.ID)
}

// FindMany lists tickets under the shared visibility policy.
func (s *TicketService) FindMany(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.list(ctx, repository.TicketFilter{
		TenantID:   actor.TenantID,
		Statuses:   filter.Statuses,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// FindByDepartment lists tickets routed to a department.
func (s *TicketService) FindByDepartment(ctx context.Context, actor *domain.User, departmentID string, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.list(ctx, repository.TicketFilter{
		TenantID:     actor.TenantID,
		DepartmentID: &departmentID,
		Statuses:     filter.Statuses,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// FindByTargetUser lists tickets currently pointed at the given user.
func (s *TicketService) FindByTargetUser(ctx context.Context, actor *domain.User, userID string, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.list(ctx, repository.TicketFilter{
		TenantID:     actor.TenantID,
		TargetUserID: &userID,
		Statuses:     filter.Statuses,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// FindByReceived lists tickets currently pointed at the caller.
func (s *TicketService) FindByReceived(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.FindByTargetUser(ctx, actor, actor.ID, filter)
}

// FindArchived lists completed tickets older than the archive cutoff.
func (s *TicketService) FindArchived(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.list(ctx, repository.TicketFilter{
		TenantID:     actor.TenantID,
		ArchivedOnly: true,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// ListUpdates returns the ticket's journal ordered by creation.
func (s *TicketService) ListUpdates(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketUpdate, error) {
	if _, err := s.getTicket(ctx, s.store, actor.TenantID, ticketID); err != nil {
		return nil, err
	}
	updates, err := s.store.Updates().ListByTicket(ctx, actor.TenantID, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return updates, nil
}

// ListFiles returns the ticket's attachment metadata records.
func (s *TicketService) ListFiles(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketFile, error) {
	if _, err := s.getTicket(ctx, s.store, actor.TenantID, ticketID); err != nil {
		return nil, err
	}
	files, err := s.store.Files().ListByTicket(ctx, actor.TenantID, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return files, nil
}

// UpdateTicket applies non-status metadata changes and journals them.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketMetadataInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			t.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			t.Description = strings.TrimSpace(*input.Description)
		}
		if input.Priority != nil {
			t.Priority = *input.Priority
		}
		if input.DueDate != nil {
			t.DueDate = input.DueDate
		}
		if input.IsPrivate != nil {
			t.IsPrivate = *input.IsPrivate
		}
		if input.CategoryID != nil {
			t.CategoryID = input.CategoryID
		}
		if err := st.Tickets().Update(ctx, t); err != nil {
			return err
		}
		ticket = t
		return st.Updates().Append(ctx, &domain.TicketUpdate{
			TenantID:    actor.TenantID,
			TicketID:    t.ID,
			PerformerID: actor.ID,
			Action:      domain.ActionUpdate,
			Description: "Ticket details updated",
		})
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// UpdateReviewer changes the ticket's reviewer and notifies the new one.
func (s *TicketService) UpdateReviewer(ctx context.Context, actor *domain.User, ticketID, reviewerID string) (*domain.Ticket, error) {
	if err := s.resolveActiveUsers(ctx, actor.TenantID, []string{reviewerID}); err != nil {
		return nil, err
	}
	var (
		ticket        *domain.Ticket
		notifications []domain.Notification
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		t.ReviewerID = &reviewerID
		if err := st.Tickets().Update(ctx, t); err != nil {
			return err
		}
		if err := st.Updates().Append(ctx, &domain.TicketUpdate{
			TenantID:    actor.TenantID,
			TicketID:    t.ID,
			PerformerID: actor.ID,
			Action:      domain.ActionUpdate,
			Description: "Reviewer changed",
		}); err != nil {
			return err
		}
		ticket = t
		notifications = []domain.Notification{{
			TenantID:         actor.TenantID,
			UserID:           reviewerID,
			Type:             domain.NotificationTicketAssigned,
			Message:          fmt.Sprintf("You are now the reviewer of ticket %s", t.CustomID),
			ResourceID:       t.ID,
			ResourceCustomID: t.CustomID,
		}}
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.notifier.Dispatch(ctx, notifications)
	return ticket, nil
}

// AddFiles attaches file metadata records to a ticket.
func (s *TicketService) AddFiles(ctx context.Context, actor *domain.User, ticketID string, files []FileInput) ([]domain.TicketFile, error) {
	if len(files) == 0 {
		return nil, util.NewValidationError("at least one file required", nil)
	}
	var created []domain.TicketFile
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		for _, f := range files {
			storageKey := strings.TrimSpace(f.StorageKey)
			if storageKey == "" {
				storageKey = uuid.NewString()
			}
			record := domain.TicketFile{
				TenantID:     actor.TenantID,
				TicketID:     t.ID,
				UploadedByID: actor.ID,
				StorageKey:   storageKey,
				FileName:     f.FileName,
				MimeType:     f.MimeType,
				SizeBytes:    f.SizeBytes,
			}
			if err := st.Files().Create(ctx, &record); err != nil {
				return err
			}
			created = append(created, record)
		}
		return st.Updates().Append(ctx, &domain.TicketUpdate{
			TenantID:    actor.TenantID,
			TicketID:    t.ID,
			PerformerID: actor.ID,
			Action:      domain.ActionUpdate,
			Description: fmt.Sprintf("%d file(s) attached", len(files)),
		})
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	return created, nil
}

// DeleteTicket removes a ticket; only the requester may do this.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) error {
	ticket, err := s.getTicket(ctx, s.store, actor.TenantID, ticketID)
	if err != nil {
		return err
	}
	if ticket.RequesterID != actor.ID {
		return util.NewForbidden(util.CodeNotTicketRequester, "only the requester may delete a ticket")
	}
	if err := s.store.Tickets().Delete(ctx, actor.TenantID, ticketID); err != nil {
		return util.MapError(err)
	}
	return nil
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.store.Tickets().ListWithFilter(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) getTicket(ctx context.Context, st repository.Store, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := st.Tickets().GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if util.IsNoRows(err) {
			return nil, util.NewNotFound(util.CodeTicketNotFound, "ticket not found", map[string]any{"ticket_id": ticketID})
		}
		return nil, util.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) isInvolved(ctx context.Context, actor *domain.User, ticket *domain.Ticket) (bool, error) {
	if ticket.RequesterID == actor.ID {
		return true, nil
	}
	if ticket.ReviewerID != nil && *ticket.ReviewerID == actor.ID {
		return true, nil
	}
	chain, err := s.store.TargetUsers().ListByTicket(ctx, ticket.TenantID, ticket.ID)
	if err != nil {
		return false, util.MapError(err)
	}
	for _, slot := range chain {
		if slot.UserID == actor.ID {
			return true, nil
		}
	}
	return false, nil
}

// resolveActiveUsers ensures every id maps to an active user in the
// tenant.
func (s *TicketService) resolveActiveUsers(ctx context.Context, tenantID string, userIDs []string) error {
	users, err := s.store.Users().ListByIDs(ctx, tenantID, userIDs)
	if err != nil {
		return util.MapError(err)
	}
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range userIDs {
		u, ok := byID[id]
		if !ok || !u.IsActive {
			return util.NewNotFound(util.CodeTargetUserNotFound, "target user not found or inactive", map[string]any{"user_id": id})
		}
	}
	return nil
}

func (s *TicketService) persistNotifications(ctx context.Context, st repository.Store, notifications []domain.Notification) error {
	for i := range notifications {
		if err := st.Notifications().Create(ctx, &notifications[i]); err != nil {
			return err
		}
	}
	return nil
}

// nextSequence parses the numeric suffix of the highest existing code and
// increments it; an empty last code starts the tenant at 1.
func nextSequence(lastCustomID string) int64 {
	if lastCustomID == "" {
		return 1
	}
	idx := strings.LastIndex(lastCustomID, "-")
	if idx < 0 || idx == len(lastCustomID)-1 {
		return 1
	}
	n, err := strconv.ParseInt(lastCustomID[idx+1:], 10, 64)
	if err != nil {
		return 1
	}
	return n + 1
}
