package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

type transitionKey struct {
	From domain.StatusKey
	To   domain.StatusKey
}

// transitionEnv carries the data recipient selectors work against.
type transitionEnv struct {
	ticket *domain.Ticket
	actor  *domain.User
	chain  []domain.TicketTargetUser
}

// transitionSpec declares one allowed generic status move: the journal
// wording, who gets an in-app notification and who also gets an email.
type transitionSpec struct {
	description string
	recipients  func(env transitionEnv) []string
	emailUsers  func(env transitionEnv) []string
}

func reviewerRecipients(env transitionEnv) []string {
	if env.ticket.ReviewerID == nil || *env.ticket.ReviewerID == env.actor.ID {
		return nil
	}
	return []string{*env.ticket.ReviewerID}
}

func chainRecipients(env transitionEnv) []string {
	var ids []string
	for _, slot := range env.chain {
		if slot.UserID == env.actor.ID {
			continue
		}
		ids = append(ids, slot.UserID)
	}
	return ids
}

func noRecipients(transitionEnv) []string { return nil }

// statusTransitions lists the generic moves accepted by UpdateStatus.
// Lifecycle-specific moves (accept, approve, reject, cancel, correction,
// chain handoff) have dedicated operations with their own guards.
var statusTransitions = map[transitionKey]transitionSpec{
	{domain.StatusInProgress, domain.StatusAwaitingVerification}: {
		description: "Ticket submitted for verification",
		recipients:  reviewerRecipients,
		emailUsers:  reviewerRecipients,
	},
	{domain.StatusAwaitingVerification, domain.StatusInProgress}: {
		description: "Ticket pulled back to in progress",
		recipients:  reviewerRecipients,
		emailUsers:  reviewerRecipients,
	},
	{domain.StatusAwaitingVerification, domain.StatusUnderVerification}: {
		description: "Verification started",
		recipients:  chainRecipients,
		emailUsers:  chainRecipients,
	},
	{domain.StatusReturned, domain.StatusInProgress}: {
		description: "Rework started on returned ticket",
		recipients:  reviewerRecipients,
		emailUsers:  reviewerRecipients,
	},
}

// UpdateStatus performs one of the generic workflow moves. Unknown pairs
// are rejected before any write happens.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, to domain.StatusKey) (*domain.Ticket, error) {
	var (
		ticket        *domain.Ticket
		from          domain.StatusKey
		spec          transitionSpec
		env           transitionEnv
		notifications []domain.Notification
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		from = t.StatusKey
		var ok bool
		spec, ok = statusTransitions[transitionKey{From: from, To: to}]
		if !ok {
			return util.NewForbidden(util.CodeInvalidTransition,
				fmt.Sprintf("transition %s to %s is not allowed", from, to))
		}
		if err := s.applyStatusChange(ctx, st, t, actor, to, domain.ActionStatusUpdate, spec.description); err != nil {
			return err
		}
		chain, err := st.TargetUsers().ListByTicket(ctx, actor.TenantID, t.ID)
		if err != nil {
			return err
		}
		env = transitionEnv{ticket: t, actor: actor, chain: chain}
		notifications = buildStatusNotifications(t, spec.recipients(env),
			fmt.Sprintf("Ticket %s moved to %s", t.CustomID, to))
		ticket = t
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}

	s.metrics.RecordTransition(string(from), string(to))
	s.notifier.Dispatch(ctx, notifications)
	if emails := spec.emailUsers(env); len(emails) > 0 {
		s.notifier.SendEmailIfEnabled(ctx, actor.TenantID,
			fmt.Sprintf("Ticket %s: %s", ticket.CustomID, to),
			fmt.Sprintf("<p>Ticket <b>%s</b> moved to %s.</p>", ticket.CustomID, to),
			emails)
	}
	return ticket, nil
}

// Accept lets the current target user take a pending ticket into progress.
func (s *TicketService) Accept(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	var (
		ticket        *domain.Ticket
		from          domain.StatusKey
		notifications []domain.Notification
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if t.CurrentTargetUserID == nil || *t.CurrentTargetUserID != actor.ID {
			return util.NewForbidden(util.CodeNotCurrentTargetUser, "only the current target user may accept this ticket")
		}
		if t.StatusKey != domain.StatusPending {
			return util.NewForbidden(util.CodeInvalidTransition,
				fmt.Sprintf("cannot accept a ticket in %s", t.StatusKey))
		}
		from = t.StatusKey
		now := time.Now().UTC()
		t.AcceptedAt = &now
		if err := s.applyStatusChange(ctx, st, t, actor, domain.StatusInProgress, domain.ActionStatusUpdate, "Ticket accepted"); err != nil {
			return err
		}
		if t.RequesterID != actor.ID {
			notifications = buildStatusNotifications(t, []string{t.RequesterID},
				fmt.Sprintf("Ticket %s was accepted by %s", t.CustomID, actor.FullName()))
		}
		ticket = t
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.metrics.RecordTransition(string(from), string(domain.StatusInProgress))
	s.notifier.Dispatch(ctx, notifications)
	return ticket, nil
}

// Approve completes a ticket under verification.
func (s *TicketService) Approve(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	var (
		ticket        *domain.Ticket
		recipients    []string
		notifications []domain.Notification
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if t.StatusKey != domain.StatusUnderVerification {
			return util.NewForbidden(util.CodeInvalidTransition,
				fmt.Sprintf("cannot approve a ticket in %s", t.StatusKey))
		}
		now := time.Now().UTC()
		t.CompletedAt = &now
		if err := s.applyStatusChange(ctx, st, t, actor, domain.StatusCompleted, domain.ActionCompletion, "Ticket approved"); err != nil {
			return err
		}
		chain, err := st.TargetUsers().ListByTicket(ctx, actor.TenantID, t.ID)
		if err != nil {
			return err
		}
		recipients = chainRecipients(transitionEnv{ticket: t, actor: actor, chain: chain})
		notifications = buildStatusNotifications(t, recipients,
			fmt.Sprintf("Ticket %s was approved and completed", t.CustomID))
		ticket = t
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.metrics.RecordTransition(string(domain.StatusUnderVerification), string(domain.StatusCompleted))
	s.notifier.Dispatch(ctx, notifications)
	s.notifier.SendEmailIfEnabled(ctx, actor.TenantID,
		fmt.Sprintf("Ticket %s completed", ticket.CustomID),
		fmt.Sprintf("<p>Ticket <b>%s</b> was approved and completed.</p>", ticket.CustomID),
		recipients)
	return ticket, nil
}

// Reject ends a ticket under verification with a recorded disapproval
// reason.
func (s *TicketService) Reject(ctx context.Context, actor *domain.User, ticketID, reason, details string) (*domain.Ticket, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, util.NewValidationError("reason required", nil)
	}
	var (
		ticket        *domain.Ticket
		recipients    []string
		notifications []domain.Notification
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if t.StatusKey != domain.StatusUnderVerification {
			return util.NewForbidden(util.CodeInvalidTransition,
				fmt.Sprintf("cannot reject a ticket in %s", t.StatusKey))
		}
		now := time.Now().UTC()
		t.CompletedAt = &now
		t.RejectedAt = &now
		if err := st.Reasons().CreateDisapproval(ctx, &domain.DisapprovalReason{
			TenantID:     actor.TenantID,
			TicketID:     t.ID,
			RejectedByID: actor.ID,
			Reason:       reason,
			Details:      details,
		}); err != nil {
			return err
		}
		if err := s.applyStatusChange(ctx, st, t, actor, domain.StatusRejected, domain.ActionStatusUpdate,
			fmt.Sprintf("Ticket rejected: %s", reason)); err != nil {
			return err
		}
		chain, err := st.TargetUsers().ListByTicket(ctx, actor.TenantID, t.ID)
		if err != nil {
			return err
		}
		recipients = chainRecipients(transitionEnv{ticket: t, actor: actor, chain: chain})
		notifications = buildStatusNotifications(t, recipients,
			fmt.Sprintf("Ticket %s was rejected: %s", t.CustomID, reason))
		ticket = t
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.metrics.RecordTransition(string(domain.StatusUnderVerification), string(domain.StatusRejected))
	s.notifier.Dispatch(ctx, notifications)
	s.notifier.SendEmailIfEnabled(ctx, actor.TenantID,
		fmt.Sprintf("Ticket %s rejected", ticket.CustomID),
		fmt.Sprintf("<p>Ticket <b>%s</b> was rejected: %s</p>", ticket.CustomID, reason),
		recipients)
	return ticket, nil
}

// Cancel lets the requester withdraw a ticket that has not reached a
// terminal status.
func (s *TicketService) Cancel(ctx context.Context, actor *domain.User, ticketID, reason, details string) (*domain.Ticket, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, util.NewValidationError("reason required", nil)
	}
	var (
		ticket        *domain.Ticket
		from          domain.StatusKey
		recipients    []string
		notifications []domain.Notification
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if t.RequesterID != actor.ID {
			return util.NewForbidden(util.CodeNotTicketRequester, "only the requester may cancel a ticket")
		}
		if t.StatusKey.IsTerminal() {
			return util.NewForbidden(util.CodeInvalidTransition,
				fmt.Sprintf("cannot cancel a ticket in %s", t.StatusKey))
		}
		from = t.StatusKey
		now := time.Now().UTC()
		t.CanceledAt = &now
		if err := st.Reasons().CreateCancellation(ctx, &domain.CancellationReason{
			TenantID:     actor.TenantID,
			TicketID:     t.ID,
			CanceledByID: actor.ID,
			Reason:       reason,
			Details:      details,
		}); err != nil {
			return err
		}
		if err := s.applyStatusChange(ctx, st, t, actor, domain.StatusCanceled, domain.ActionCancellation,
			fmt.Sprintf("Ticket canceled: %s", reason)); err != nil {
			return err
		}
		chain, err := st.TargetUsers().ListByTicket(ctx, actor.TenantID, t.ID)
		if err != nil {
			return err
		}
		recipients = chainRecipients(transitionEnv{ticket: t, actor: actor, chain: chain})
		for _, id := range recipients {
			notifications = append(notifications, domain.Notification{
				TenantID:         actor.TenantID,
				UserID:           id,
				Type:             domain.NotificationTicketCanceled,
				Message:          fmt.Sprintf("Ticket %s was canceled by the requester", t.CustomID),
				ResourceID:       t.ID,
				ResourceCustomID: t.CustomID,
			})
		}
		ticket = t
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.metrics.RecordTransition(string(from), string(domain.StatusCanceled))
	s.notifier.Dispatch(ctx, notifications)
	s.notifier.SendEmailIfEnabled(ctx, actor.TenantID,
		fmt.Sprintf("Ticket %s canceled", ticket.CustomID),
		fmt.Sprintf("<p>Ticket <b>%s</b> was canceled: %s</p>", ticket.CustomID, reason),
		recipients)
	return ticket, nil
}

// RequestCorrection returns a ticket under verification for rework. When
// targetUserID is given it must belong to the chain and becomes the new
// current holder.
func (s *TicketService) RequestCorrection(ctx context.Context, actor *domain.User, ticketID, reason, details string, targetUserID *string) (*domain.Ticket, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, util.NewValidationError("reason required", nil)
	}
	var (
		ticket        *domain.Ticket
		recipients    []string
		notifications []domain.Notification
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if t.StatusKey != domain.StatusUnderVerification {
			return util.NewForbidden(util.CodeInvalidTransition,
				fmt.Sprintf("cannot request correction on a ticket in %s", t.StatusKey))
		}
		chain, err := st.TargetUsers().ListByTicket(ctx, actor.TenantID, t.ID)
		if err != nil {
			return err
		}
		if targetUserID != nil {
			inChain := false
			for _, slot := range chain {
				if slot.UserID == *targetUserID {
					inChain = true
					break
				}
			}
			if !inChain {
				return util.NewNotFound(util.CodeTargetUserNotFound, "target user is not part of the ticket chain",
					map[string]any{"user_id": *targetUserID})
			}
			t.CurrentTargetUserID = targetUserID
		}
		if err := st.Reasons().CreateCorrection(ctx, &domain.CorrectionRequest{
			TenantID:      actor.TenantID,
			TicketID:      t.ID,
			RequestedByID: actor.ID,
			TargetUserID:  targetUserID,
			Reason:        reason,
			Details:       details,
		}); err != nil {
			return err
		}
		if err := s.applyStatusChange(ctx, st, t, actor, domain.StatusReturned, domain.ActionStatusUpdate,
			fmt.Sprintf("Correction requested: %s", reason)); err != nil {
			return err
		}
		recipients = chainRecipients(transitionEnv{ticket: t, actor: actor, chain: chain})
		for _, id := range recipients {
			notifications = append(notifications, domain.Notification{
				TenantID:         actor.TenantID,
				UserID:           id,
				Type:             domain.NotificationTicketReturned,
				Message:          fmt.Sprintf("Ticket %s was returned for correction: %s", t.CustomID, reason),
				ResourceID:       t.ID,
				ResourceCustomID: t.CustomID,
			})
		}
		ticket = t
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.metrics.RecordTransition(string(domain.StatusUnderVerification), string(domain.StatusReturned))
	s.notifier.Dispatch(ctx, notifications)
	s.notifier.SendEmailIfEnabled(ctx, actor.TenantID,
		fmt.Sprintf("Ticket %s returned for correction", ticket.CustomID),
		fmt.Sprintf("<p>Ticket <b>%s</b> was returned for correction: %s</p>", ticket.CustomID, reason),
		recipients)
	return ticket, nil
}

// ExecuteStatusAction performs a tenant-defined transition. Guards run in
// declaration order so the most specific failure wins. Custom transitions
// journal only; they fan out no notifications.
func (s *TicketService) ExecuteStatusAction(ctx context.Context, actor *domain.User, ticketID, actionID string) (*domain.Ticket, error) {
	var (
		ticket *domain.Ticket
		from   domain.StatusKey
		to     domain.StatusKey
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		action, err := st.StatusActions().GetByID(ctx, actor.TenantID, actionID)
		if err != nil {
			if util.IsNoRows(err) {
				return util.NewNotFound(util.CodeActionNotFound, "status action not found",
					map[string]any{"action_id": actionID})
			}
			return err
		}
		if t.StatusID != action.FromStatusID {
			return util.NewForbidden(util.CodeInvalidStatusForAction, "action does not apply to the ticket's current status")
		}
		fromStatus, err := st.Statuses().GetByID(ctx, actor.TenantID, action.FromStatusID)
		if err != nil {
			return err
		}
		if fromStatus.IsDefault {
			return util.NewForbidden(util.CodeDefaultStatusAction, "actions cannot move tickets out of a built-in status")
		}
		if action.ToStatusID == nil {
			return util.NewForbidden(util.CodeMissingTargetStatus, "action has no target status")
		}
		toStatus, err := st.Statuses().GetByID(ctx, actor.TenantID, *action.ToStatusID)
		if err != nil {
			if util.IsNoRows(err) {
				return util.NewNotFound(util.CodeStatusNotFound, "target status not found", nil)
			}
			return err
		}
		from = t.StatusKey
		to = toStatus.Key
		if err := s.applyStatusChange(ctx, st, t, actor, toStatus.Key, domain.ActionStatusUpdate, action.Title); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.metrics.RecordTransition(string(from), string(to))
	return ticket, nil
}

// applyStatusChange moves the ticket to the target status, computing the
// seconds spent in the outgoing status from the journal and appending the
// new entry. A missing prior entry records unknown elapsed time, never
// zero.
func (s *TicketService) applyStatusChange(ctx context.Context, st repository.Store, t *domain.Ticket, actor *domain.User, to domain.StatusKey, action domain.UpdateAction, description string) error {
	target, err := st.Statuses().GetByKey(ctx, t.TenantID, to)
	if err != nil {
		if util.IsNoRows(err) {
			return util.NewNotFound(util.CodeStatusNotFound, "status not found",
				map[string]any{"status": string(to)})
		}
		return err
	}
	elapsed, err := s.elapsedInCurrentStatus(ctx, st, t)
	if err != nil {
		return err
	}

	from := t.StatusKey
	t.StatusID = target.ID
	t.StatusKey = target.Key
	if err := st.Tickets().Update(ctx, t); err != nil {
		return err
	}
	return st.Updates().Append(ctx, &domain.TicketUpdate{
		TenantID:                t.TenantID,
		TicketID:                t.ID,
		PerformerID:             actor.ID,
		Action:                  action,
		FromStatus:              from,
		ToStatus:                target.Key,
		TimeSecondsInLastStatus: elapsed,
		Description:             description,
	})
}

// elapsedInCurrentStatus measures from the newest journal entry that moved
// the ticket into its current status. Nil means no such entry exists.
func (s *TicketService) elapsedInCurrentStatus(ctx context.Context, st repository.Store, t *domain.Ticket) (*int64, error) {
	last, err := st.Updates().LastByToStatus(ctx, t.TenantID, t.ID, t.StatusKey)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}
	seconds := int64(time.Since(last.CreatedAt) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return &seconds, nil
}

func buildStatusNotifications(t *domain.Ticket, userIDs []string, message string) []domain.Notification {
	notifications := make([]domain.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		notifications = append(notifications, domain.Notification{
			TenantID:         t.TenantID,
			UserID:           id,
			Type:             domain.NotificationTicketStatus,
			Message:          message,
			ResourceID:       t.ID,
			ResourceCustomID: t.CustomID,
		})
	}
	return notifications
}
