package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures list-query parameters. Unless ArchivedOnly is set,
// results follow the shared visibility policy: Rejected and Canceled
// tickets are excluded and Completed tickets appear only within the
// archive period.
type TicketFilter struct {
	TenantID     string
	RequesterID  *string
	DepartmentID *string
	TargetUserID *string
	Statuses     []domain.StatusKey
	SearchTerm   *string
	ArchivedOnly bool
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence. All reads join the
// status catalog to populate StatusKey.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	GetByCustomID(ctx context.Context, tenantID, customID string) (*domain.Ticket, error)
	// LastCustomID returns the code with the highest numeric suffix for
	// the tenant, or "" when the tenant has no tickets yet.
	LastCustomID(ctx context.Context, tenantID string) (string, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type ticketRepository struct {
	q Querier
}

const ticketColumns = `t.id, t.tenant_id, t.custom_id, t.name, t.description, t.priority, t.is_private,
       t.requester_id, t.department_id, t.category_id, t.reviewer_id,
       t.status_id, s.key, t.current_target_user_id, t.due_date,
       t.accepted_at, t.completed_at, t.rejected_at, t.canceled_at, t.created_at, t.updated_at`

const ticketFrom = ` FROM tickets t JOIN ticket_statuses s ON s.id = t.status_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (tenant_id, custom_id, name, description, priority, is_private,
                             requester_id, department_id, category_id, reviewer_id,
                             status_id, current_target_user_id, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		ticket.TenantID,
		ticket.CustomID,
		ticket.Name,
		ticket.Description,
		ticket.Priority,
		ticket.IsPrivate,
		ticket.RequesterID,
		ticket.DepartmentID,
		ticket.CategoryID,
		ticket.ReviewerID,
		ticket.StatusID,
		ticket.CurrentTargetUserID,
		ticket.DueDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET name=$1, description=$2, priority=$3, is_private=$4,
            department_id=$5, category_id=$6, reviewer_id=$7, status_id=$8,
            current_target_user_id=$9, due_date=$10, accepted_at=$11,
            completed_at=$12, rejected_at=$13, canceled_at=$14, updated_at=NOW()
        WHERE tenant_id=$15 AND id=$16`
	cmd, err := r.q.Exec(ctx, query,
		ticket.Name,
		ticket.Description,
		ticket.Priority,
		ticket.IsPrivate,
		ticket.DepartmentID,
		ticket.CategoryID,
		ticket.ReviewerID,
		ticket.StatusID,
		ticket.CurrentTargetUserID,
		ticket.DueDate,
		ticket.AcceptedAt,
		ticket.CompletedAt,
		ticket.RejectedAt,
		ticket.CanceledAt,
		ticket.TenantID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE t.tenant_id=$1 AND t.id=$2`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *ticketRepository) GetByCustomID(ctx context.Context, tenantID, customID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE t.tenant_id=$1 AND t.custom_id=$2`
	return r.fetchSingle(ctx, query, tenantID, customID)
}

func (r *ticketRepository) LastCustomID(ctx context.Context, tenantID string) (string, error) {
	const query = `
        SELECT custom_id FROM tickets WHERE tenant_id=$1
        ORDER BY (substring(custom_id from '[0-9]+$'))::bigint DESC
        LIMIT 1`
	var customID string
	err := r.q.QueryRow(ctx, query, tenantID).Scan(&customID)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return customID, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.q.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"t.tenant_id=$1"}
	args := []any{filter.TenantID}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("t.requester_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("t.department_id=$%d", len(args)))
	}
	if filter.TargetUserID != nil {
		args = append(args, *filter.TargetUserID)
		clauses = append(clauses, fmt.Sprintf("t.current_target_user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, key := range filter.Statuses {
			args = append(args, key)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("s.key IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.name) LIKE %s OR LOWER(t.description) LIKE %s)", placeholder, placeholder))
	}

	cutoff := domain.ArchiveCutoff(time.Now())
	if filter.ArchivedOnly {
		args = append(args, domain.StatusCompleted, cutoff)
		clauses = append(clauses, fmt.Sprintf("s.key=$%d AND t.completed_at < $%d", len(args)-1, len(args)))
	} else if len(filter.Statuses) == 0 {
		args = append(args, domain.StatusRejected, domain.StatusCanceled)
		clauses = append(clauses, fmt.Sprintf("s.key NOT IN ($%d,$%d)", len(args)-1, len(args)))
		args = append(args, domain.StatusCompleted, cutoff)
		clauses = append(clauses, fmt.Sprintf("(s.key <> $%d OR t.completed_at >= $%d)", len(args)-1, len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s%s WHERE %s ORDER BY t.created_at DESC LIMIT %d OFFSET %d",
		ticketColumns, ticketFrom, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM tickets WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.CustomID,
		&ticket.Name,
		&ticket.Description,
		&ticket.Priority,
		&ticket.IsPrivate,
		&ticket.RequesterID,
		&ticket.DepartmentID,
		&ticket.CategoryID,
		&ticket.ReviewerID,
		&ticket.StatusID,
		&ticket.StatusKey,
		&ticket.CurrentTargetUserID,
		&ticket.DueDate,
		&ticket.AcceptedAt,
		&ticket.CompletedAt,
		&ticket.RejectedAt,
		&ticket.CanceledAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
