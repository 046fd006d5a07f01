package domain

import "time"

// UpdateAction captures what a journal entry records.
type UpdateAction string

const (
	ActionCreation       UpdateAction = "CREATION"
	ActionStatusUpdate   UpdateAction = "STATUS_UPDATE"
	ActionCompletion     UpdateAction = "COMPLETION"
	ActionUpdate         UpdateAction = "UPDATE"
	ActionCancellation   UpdateAction = "CANCELLATION"
	ActionAssigneeChange UpdateAction = "ASSIGNEE_CHANGE"
	ActionAssigneeRemove UpdateAction = "ASSIGNEE_REMOVE"
)

// TicketUpdate is an immutable journal entry. Entries are created, never
// mutated or deleted; they serve both as audit trail and as the source for
// per-status elapsed-time analytics. TimeSecondsInLastStatus is nil when
// the previous status has no recorded entry ("unknown duration", not zero).
type TicketUpdate struct {
	ID                      string
	TenantID                string
	TicketID                string
	PerformerID             string
	Action                  UpdateAction
	FromStatus              StatusKey
	ToStatus                StatusKey
	TimeSecondsInLastStatus *int64
	Description             string
	CreatedAt               time.Time
}
