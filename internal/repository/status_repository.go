package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StatusRepository manages the per-tenant status catalog.
type StatusRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Status, error)
	GetByKey(ctx context.Context, tenantID string, key domain.StatusKey) (*domain.Status, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Status, error)
	Create(ctx context.Context, status *domain.Status) error
	// EnsureBuiltins idempotently seeds the eight default statuses for a
	// tenant.
	EnsureBuiltins(ctx context.Context, tenantID string) error
}

type statusRepository struct {
	q Querier
}

const statusColumns = `id, tenant_id, key, label, is_default, created_at`

func (r *statusRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Status, error) {
	query := `SELECT ` + statusColumns + ` FROM ticket_statuses WHERE tenant_id=$1 AND id=$2`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *statusRepository) GetByKey(ctx context.Context, tenantID string, key domain.StatusKey) (*domain.Status, error) {
	query := `SELECT ` + statusColumns + ` FROM ticket_statuses WHERE tenant_id=$1 AND key=$2`
	return r.fetchSingle(ctx, query, tenantID, key)
}

func (r *statusRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Status, error) {
	var status domain.Status
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&status.ID,
		&status.TenantID,
		&status.Key,
		&status.Label,
		&status.IsDefault,
		&status.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *statusRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Status, error) {
	query := `SELECT ` + statusColumns + ` FROM ticket_statuses WHERE tenant_id=$1 ORDER BY is_default DESC, created_at ASC`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var status domain.Status
		if err := rows.Scan(&status.ID, &status.TenantID, &status.Key, &status.Label, &status.IsDefault, &status.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

func (r *statusRepository) Create(ctx context.Context, status *domain.Status) error {
	const query = `
        INSERT INTO ticket_statuses (tenant_id, key, label, is_default)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		status.TenantID,
		status.Key,
		status.Label,
		status.IsDefault,
	).Scan(&status.ID, &status.CreatedAt)
}

func (r *statusRepository) EnsureBuiltins(ctx context.Context, tenantID string) error {
	const query = `
        INSERT INTO ticket_statuses (tenant_id, key, label, is_default)
        VALUES ($1,$2,$3,TRUE)
        ON CONFLICT (tenant_id, key) DO NOTHING`
	for _, builtin := range domain.BuiltinStatuses {
		if _, err := r.q.Exec(ctx, query, tenantID, builtin.Key, builtin.Label); err != nil {
			return err
		}
	}
	return nil
}
