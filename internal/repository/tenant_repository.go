package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TenantRepository resolves tenants and their subscription permission set.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	Permissions(ctx context.Context, tenantID string) ([]string, error)
}

type tenantRepository struct {
	q Querier
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	const query = `SELECT id, custom_key, name, created_at, updated_at FROM tenants WHERE id=$1`
	var tenant domain.Tenant
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.CustomKey,
		&tenant.Name,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) Permissions(ctx context.Context, tenantID string) ([]string, error) {
	const query = `SELECT permission FROM tenant_permissions WHERE tenant_id=$1`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var permission string
		if err := rows.Scan(&permission); err != nil {
			return nil, err
		}
		result = append(result, permission)
	}
	return result, rows.Err()
}
