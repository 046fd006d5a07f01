package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TargetUserRepository stores the ordered assignee chain per ticket.
type TargetUserRepository interface {
	// CreateChain assigns order 1..len(userIDs) in the given sequence.
	CreateChain(ctx context.Context, tenantID, ticketID string, userIDs []string) ([]domain.TicketTargetUser, error)
	GetByOrder(ctx context.Context, tenantID, ticketID string, order int) (*domain.TicketTargetUser, error)
	GetByUser(ctx context.Context, tenantID, ticketID, userID string) (*domain.TicketTargetUser, error)
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketTargetUser, error)
	ReplaceAt(ctx context.Context, tenantID, ticketID string, order int, userID string) error
}

type targetUserRepository struct {
	q Querier
}

const targetUserColumns = `id, tenant_id, ticket_id, user_id, slot_order, created_at`

func (r *targetUserRepository) CreateChain(ctx context.Context, tenantID, ticketID string, userIDs []string) ([]domain.TicketTargetUser, error) {
	const query = `
        INSERT INTO ticket_target_users (tenant_id, ticket_id, user_id, slot_order)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	chain := make([]domain.TicketTargetUser, 0, len(userIDs))
	for i, userID := range userIDs {
		slot := domain.TicketTargetUser{
			TenantID: tenantID,
			TicketID: ticketID,
			UserID:   userID,
			Order:    i + 1,
		}
		if err := r.q.QueryRow(ctx, query, tenantID, ticketID, userID, slot.Order).Scan(&slot.ID, &slot.CreatedAt); err != nil {
			return nil, err
		}
		chain = append(chain, slot)
	}
	return chain, nil
}

func (r *targetUserRepository) GetByOrder(ctx context.Context, tenantID, ticketID string, order int) (*domain.TicketTargetUser, error) {
	query := `SELECT ` + targetUserColumns + ` FROM ticket_target_users WHERE tenant_id=$1 AND ticket_id=$2 AND slot_order=$3`
	return r.fetchSingle(ctx, query, tenantID, ticketID, order)
}

func (r *targetUserRepository) GetByUser(ctx context.Context, tenantID, ticketID, userID string) (*domain.TicketTargetUser, error) {
	query := `SELECT ` + targetUserColumns + ` FROM ticket_target_users WHERE tenant_id=$1 AND ticket_id=$2 AND user_id=$3`
	return r.fetchSingle(ctx, query, tenantID, ticketID, userID)
}

func (r *targetUserRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.TicketTargetUser, error) {
	var slot domain.TicketTargetUser
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&slot.ID,
		&slot.TenantID,
		&slot.TicketID,
		&slot.UserID,
		&slot.Order,
		&slot.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *targetUserRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketTargetUser, error) {
	query := `SELECT ` + targetUserColumns + ` FROM ticket_target_users WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY slot_order ASC`
	rows, err := r.q.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketTargetUser
	for rows.Next() {
		var slot domain.TicketTargetUser
		if err := rows.Scan(&slot.ID, &slot.TenantID, &slot.TicketID, &slot.UserID, &slot.Order, &slot.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, slot)
	}
	return result, rows.Err()
}

func (r *targetUserRepository) ReplaceAt(ctx context.Context, tenantID, ticketID string, order int, userID string) error {
	const query = `
        UPDATE ticket_target_users SET user_id=$1
        WHERE tenant_id=$2 AND ticket_id=$3 AND slot_order=$4`
	cmd, err := r.q.Exec(ctx, query, userID, tenantID, ticketID, order)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
