package domain

import "time"

// NotificationType enumerates persisted notification kinds.
type NotificationType string

const (
	NotificationTicketAssigned NotificationType = "TICKET_ASSIGNED"
	NotificationTicketStatus   NotificationType = "TICKET_STATUS"
	NotificationTicketReturned NotificationType = "TICKET_RETURNED"
	NotificationTicketCanceled NotificationType = "TICKET_CANCELED"
)

// Notification is a persisted per-user message about a ticket transition.
// Rows are written inside the workflow transaction; delivery to live
// subscribers happens after commit, best-effort.
type Notification struct {
	ID               string
	TenantID         string
	UserID           string
	Type             NotificationType
	Message          string
	ResourceID       string
	ResourceCustomID string
	ReadAt           *time.Time
	CreatedAt        time.Time
}
