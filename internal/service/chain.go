package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// SendToNextDepartment hands the ticket to the next slot in its chain and
// resets it to Pending so the new holder accepts it again.
func (s *TicketService) SendToNextDepartment(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	var (
		ticket        *domain.Ticket
		from          domain.StatusKey
		notifications []domain.Notification
		nextUserID    string
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.Store) error {
		t, err := s.getTicket(ctx, st, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if t.StatusKey.IsTerminal() {
			return util.NewForbidden(util.CodeInvalidTransition,
				fmt.Sprintf("cannot hand off a ticket in %s", t.StatusKey))
		}
		if t.CurrentTargetUserID == nil {
			return util.NewForbidden(util.CodeNoNextTargetUser, "ticket has no current target user")
		}
		current, err := st.TargetUsers().GetByUser(ctx, actor.TenantID, t.ID, *t.CurrentTargetUserID)
		if err != nil {
			if util.IsNoRows(err) {
				return util.NewForbidden(util.CodeNoNextTargetUser, "current target user is not in the chain")
			}
			return err
		}
		next, err := st.TargetUsers().GetByOrder(ctx, actor.TenantID, t.ID, current.Order+1)
		if err != nil {
			if util.IsNoRows(err) {
				return util.NewForbidden(util.CodeNoNextTargetUser, "ticket is already at the last chain position")
			}
			return err
		}

		previousUserID := *t.CurrentTargetUserID
		nextUserID = next.UserID
		from = t.StatusKey
		t.CurrentTargetUserID = &next.UserID
		if err := s.applyStatusChange(ctx, st, t, actor, domain.StatusPending, domain.ActionAssigneeChange,
			fmt.Sprintf("Ticket handed to chain position %d", next.Order)); err != nil {
			return err
		}

		notifications = append(notifications, domain.Notification{
			TenantID:         actor.TenantID,
			UserID:           next.UserID,
			Type:             domain.NotificationTicketAssigned,
			Message:          fmt.Sprintf("Ticket %s was handed to you", t.CustomID),
			ResourceID:       t.ID,
			ResourceCustomID: t.CustomID,
		})
		chain, err := st.TargetUsers().ListByTicket(ctx, actor.TenantID, t.ID)
		if err != nil {
			return err
		}
		for _, slot := range chain {
			if slot.UserID == previousUserID || slot.UserID == next.UserID || slot.UserID == actor.ID {
				continue
			}
			notifications = append(notifications, domain.Notification{
				TenantID:         actor.TenantID,
				UserID:           slot.UserID,
				Type:             domain.NotificationTicketStatus,
				Message:          fmt.Sprintf("Ticket %s moved to chain position %d", t.CustomID, next.Order),
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

	s.metrics.RecordTransition(string(from), string(domain.StatusPending))
	s.notifier.Dispatch(ctx, notifications)
	s.notifier.SendEmailIfEnabled(ctx, actor.TenantID,
		fmt.Sprintf("Ticket %s handed to you", ticket.CustomID),
		fmt.Sprintf("<p>Ticket <b>%s</b> is now waiting for your acceptance.</p>", ticket.CustomID),
		[]string{nextUserID})
	return ticket, nil
}

// UpdateAssignee replaces the user at a chain position. The ticket's
// current target pointer moves only when the replaced slot held it.
func (s *TicketService) UpdateAssignee(ctx context.Context, actor *domain.User, ticketID string, order int, newUserID string) (*domain.Ticket, error) {
	if err := s.resolveActiveUsers(ctx, actor.TenantID, []string{newUserID}); err != nil {
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
		chain, err := st.TargetUsers().ListByTicket(ctx, actor.TenantID, t.ID)
		if err != nil {
			return err
		}
		if order < 1 || order > len(chain) {
			return util.NewForbidden(util.CodeInvalidOrderPosition,
				fmt.Sprintf("chain has no position %d", order))
		}
		replaced := chain[order-1]
		if err := st.TargetUsers().ReplaceAt(ctx, actor.TenantID, t.ID, order, newUserID); err != nil {
			if util.IsNoRows(err) {
				return util.NewForbidden(util.CodeInvalidOrderPosition,
					fmt.Sprintf("chain has no position %d", order))
			}
			return err
		}
		if t.CurrentTargetUserID != nil && *t.CurrentTargetUserID == replaced.UserID {
			t.CurrentTargetUserID = &newUserID
			if err := st.Tickets().Update(ctx, t); err != nil {
				return err
			}
		}
		if err := st.Updates().Append(ctx, &domain.TicketUpdate{
			TenantID:    actor.TenantID,
			TicketID:    t.ID,
			PerformerID: actor.ID,
			Action:      domain.ActionAssigneeChange,
			Description: fmt.Sprintf("Assignee at position %d replaced", order),
		}); err != nil {
			return err
		}
		if newUserID != actor.ID {
			notifications = []domain.Notification{{
				TenantID:         actor.TenantID,
				UserID:           newUserID,
				Type:             domain.NotificationTicketAssigned,
				Message:          fmt.Sprintf("You were added to ticket %s at position %d", t.CustomID, order),
				ResourceID:       t.ID,
				ResourceCustomID: t.CustomID,
			}}
		}
		ticket = t
		return s.persistNotifications(ctx, st, notifications)
	})
	if err != nil {
		return nil, util.MapError(err)
	}
	s.notifier.Dispatch(ctx, notifications)
	return ticket, nil
}
