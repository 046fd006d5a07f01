package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationResponse is one in-app notification.
type NotificationResponse struct {
	ID               string                  `json:"id"`
	Type             domain.NotificationType `json:"type"`
	Message          string                  `json:"message"`
	ResourceID       string                  `json:"resource_id"`
	ResourceCustomID string                  `json:"resource_custom_id"`
	ReadAt           *time.Time              `json:"read_at"`
	CreatedAt        time.Time               `json:"created_at"`
}
