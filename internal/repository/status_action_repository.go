package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StatusActionRepository manages tenant-configurable transitions.
type StatusActionRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.StatusAction, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.StatusAction, error)
	Create(ctx context.Context, action *domain.StatusAction) error
	Delete(ctx context.Context, tenantID, id string) error
}

type statusActionRepository struct {
	q Querier
}

func (r *statusActionRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.StatusAction, error) {
	const query = `
        SELECT id, tenant_id, from_status_id, to_status_id, title, created_at
        FROM status_actions WHERE tenant_id=$1 AND id=$2`
	var action domain.StatusAction
	if err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&action.ID,
		&action.TenantID,
		&action.FromStatusID,
		&action.ToStatusID,
		&action.Title,
		&action.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &action, nil
}

func (r *statusActionRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.StatusAction, error) {
	const query = `
        SELECT id, tenant_id, from_status_id, to_status_id, title, created_at
        FROM status_actions WHERE tenant_id=$1 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusAction
	for rows.Next() {
		var action domain.StatusAction
		if err := rows.Scan(&action.ID, &action.TenantID, &action.FromStatusID, &action.ToStatusID, &action.Title, &action.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, action)
	}
	return result, rows.Err()
}

func (r *statusActionRepository) Create(ctx context.Context, action *domain.StatusAction) error {
	const query = `
        INSERT INTO status_actions (tenant_id, from_status_id, to_status_id, title)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		action.TenantID,
		action.FromStatusID,
		action.ToStatusID,
		action.Title,
	).Scan(&action.ID, &action.CreatedAt)
}

func (r *statusActionRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM status_actions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
