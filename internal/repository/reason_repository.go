package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ReasonRepository persists the one-shot side records created by
// rejection, cancellation and correction requests.
type ReasonRepository interface {
	CreateCorrection(ctx context.Context, req *domain.CorrectionRequest) error
	CreateCancellation(ctx context.Context, reason *domain.CancellationReason) error
	CreateDisapproval(ctx context.Context, reason *domain.DisapprovalReason) error
}

type reasonRepository struct {
	q Querier
}

func (r *reasonRepository) CreateCorrection(ctx context.Context, req *domain.CorrectionRequest) error {
	const query = `
        INSERT INTO correction_requests (tenant_id, ticket_id, requested_by_id, target_user_id, reason, details)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		req.TenantID,
		req.TicketID,
		req.RequestedByID,
		req.TargetUserID,
		req.Reason,
		req.Details,
	).Scan(&req.ID, &req.CreatedAt)
}

func (r *reasonRepository) CreateCancellation(ctx context.Context, reason *domain.CancellationReason) error {
	const query = `
        INSERT INTO ticket_cancellation_reasons (tenant_id, ticket_id, canceled_by_id, reason, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		reason.TenantID,
		reason.TicketID,
		reason.CanceledByID,
		reason.Reason,
		reason.Details,
	).Scan(&reason.ID, &reason.CreatedAt)
}

func (r *reasonRepository) CreateDisapproval(ctx context.Context, reason *domain.DisapprovalReason) error {
	const query = `
        INSERT INTO ticket_disapproval_reasons (tenant_id, ticket_id, rejected_by_id, reason, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		reason.TenantID,
		reason.TicketID,
		reason.RejectedByID,
		reason.Reason,
		reason.Details,
	).Scan(&reason.ID, &reason.CreatedAt)
}
