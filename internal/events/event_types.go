package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventNotificationCreated EventType = "notification_created"
)

// Event is a domain event emitted after a workflow transaction commits.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NotificationCreatedPayload payload.
type NotificationCreatedPayload struct {
	NotificationID   string                  `json:"notification_id"`
	UserID           string                  `json:"user_id"`
	Type             domain.NotificationType `json:"type"`
	Message          string                  `json:"message"`
	ResourceID       string                  `json:"resource_id"`
	ResourceCustomID string                  `json:"resource_custom_id"`
}
