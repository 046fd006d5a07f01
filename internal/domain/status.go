package domain

import "time"

// StatusKey is the canonical identifier for a workflow status. Journal
// entries and transition logic operate on keys; the per-tenant catalog row
// is looked up by key, never the reverse.
type StatusKey string

const (
	StatusPending              StatusKey = "PENDING"
	StatusInProgress           StatusKey = "IN_PROGRESS"
	StatusAwaitingVerification StatusKey = "AWAITING_VERIFICATION"
	StatusUnderVerification    StatusKey = "UNDER_VERIFICATION"
	StatusCompleted            StatusKey = "COMPLETED"
	StatusReturned             StatusKey = "RETURNED"
	StatusRejected             StatusKey = "REJECTED"
	StatusCanceled             StatusKey = "CANCELED"
)

// BuiltinStatuses lists the keys every tenant catalog carries, with their
// default display labels.
var BuiltinStatuses = []struct {
	Key   StatusKey
	Label string
}{
	{StatusPending, "Pending"},
	{StatusInProgress, "In Progress"},
	{StatusAwaitingVerification, "Awaiting Verification"},
	{StatusUnderVerification, "Under Verification"},
	{StatusCompleted, "Completed"},
	{StatusReturned, "Returned"},
	{StatusRejected, "Rejected"},
	{StatusCanceled, "Canceled"},
}

// IsBuiltin reports whether the key belongs to the fixed workflow graph.
func (k StatusKey) IsBuiltin() bool {
	for _, s := range BuiltinStatuses {
		if s.Key == k {
			return true
		}
	}
	return false
}

// IsTerminal reports whether tickets in this status accept no further
// built-in transitions.
func (k StatusKey) IsTerminal() bool {
	return k == StatusCompleted || k == StatusRejected || k == StatusCanceled
}

// Status is a per-tenant catalog row. Built-in rows carry IsDefault=true;
// tenant admins may add further non-default statuses reachable only
// through StatusAction entries.
type Status struct {
	ID        string
	TenantID  string
	Key       StatusKey
	Label     string
	IsDefault bool
	CreatedAt time.Time
}
