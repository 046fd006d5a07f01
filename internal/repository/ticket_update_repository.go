package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketUpdateRepository is the append-only journal. No update or delete
// operations exist.
type TicketUpdateRepository interface {
	Append(ctx context.Context, update *domain.TicketUpdate) error
	// LastByToStatus returns the most recent entry whose ToStatus matches,
	// or nil when none exists; elapsed-time computation depends on this.
	LastByToStatus(ctx context.Context, tenantID, ticketID string, to domain.StatusKey) (*domain.TicketUpdate, error)
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketUpdate, error)
}

type ticketUpdateRepository struct {
	q Querier
}

const updateColumns = `id, tenant_id, ticket_id, performer_id, action, from_status, to_status,
       time_seconds_in_last_status, description, created_at`

func (r *ticketUpdateRepository) Append(ctx context.Context, update *domain.TicketUpdate) error {
	const query = `
        INSERT INTO ticket_updates (tenant_id, ticket_id, performer_id, action, from_status, to_status,
                                    time_seconds_in_last_status, description)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		update.TenantID,
		update.TicketID,
		update.PerformerID,
		update.Action,
		nullableKey(update.FromStatus),
		nullableKey(update.ToStatus),
		update.TimeSecondsInLastStatus,
		update.Description,
	).Scan(&update.ID, &update.CreatedAt)
}

func (r *ticketUpdateRepository) LastByToStatus(ctx context.Context, tenantID, ticketID string, to domain.StatusKey) (*domain.TicketUpdate, error) {
	query := `SELECT ` + updateColumns + `
        FROM ticket_updates WHERE tenant_id=$1 AND ticket_id=$2 AND to_status=$3
        ORDER BY created_at DESC LIMIT 1`
	var update domain.TicketUpdate
	err := r.scan(r.q.QueryRow(ctx, query, tenantID, ticketID, to), &update)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &update, nil
}

func (r *ticketUpdateRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketUpdate, error) {
	query := `SELECT ` + updateColumns + `
        FROM ticket_updates WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketUpdate
	for rows.Next() {
		var update domain.TicketUpdate
		if err := r.scan(rows, &update); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}

func (r *ticketUpdateRepository) scan(row pgx.Row, update *domain.TicketUpdate) error {
	var from, to *string
	if err := row.Scan(
		&update.ID,
		&update.TenantID,
		&update.TicketID,
		&update.PerformerID,
		&update.Action,
		&from,
		&to,
		&update.TimeSecondsInLastStatus,
		&update.Description,
		&update.CreatedAt,
	); err != nil {
		return err
	}
	if from != nil {
		update.FromStatus = domain.StatusKey(*from)
	}
	if to != nil {
		update.ToStatus = domain.StatusKey(*to)
	}
	return nil
}

func nullableKey(key domain.StatusKey) *string {
	if key == "" {
		return nil
	}
	s := string(key)
	return &s
}
