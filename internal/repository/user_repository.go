package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository is the user/role directory consumed by the workflow
// engine: lookup by id, batch lookup, role resolution.
type UserRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.User, error)
	GetRoleByID(ctx context.Context, tenantID, id string) (*domain.Role, error)
}

type userRepository struct {
	q Querier
}

const userColumns = `id, tenant_id, first_name, last_name, email, password_hash,
       department_id, role_id, is_active, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id=$1 AND id=$2`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.TenantID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.DepartmentID,
		&user.RoleID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id=$1 AND id = ANY($2)`
	rows, err := r.q.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.TenantID,
			&user.FirstName,
			&user.LastName,
			&user.Email,
			&user.PasswordHash,
			&user.DepartmentID,
			&user.RoleID,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) GetRoleByID(ctx context.Context, tenantID, id string) (*domain.Role, error) {
	const query = `SELECT id, tenant_id, name, created_at FROM roles WHERE tenant_id=$1 AND id=$2`
	var role domain.Role
	if err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&role.ID,
		&role.TenantID,
		&role.Name,
		&role.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &role, nil
}
