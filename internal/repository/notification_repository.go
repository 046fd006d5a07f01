package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationRepository persists per-user notifications. Writes happen
// inside the workflow transaction; a failed write rolls the whole
// transition back.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, tenantID, userID string, limit, offset int) ([]domain.Notification, error)
}

type notificationRepository struct {
	q Querier
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (tenant_id, user_id, type, message, resource_id, resource_custom_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		notification.TenantID,
		notification.UserID,
		notification.Type,
		notification.Message,
		notification.ResourceID,
		notification.ResourceCustomID,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, tenantID, userID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, tenant_id, user_id, type, message, resource_id, resource_custom_id, read_at, created_at
        FROM notifications WHERE tenant_id=$1 AND user_id=$2
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, tenantID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Type, &n.Message, &n.ResourceID, &n.ResourceCustomID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
