package domain

import "time"

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ArchivePeriod is how long a completed ticket stays visible in regular
// list queries before it is considered archived.
const ArchivePeriod = 7 * 24 * time.Hour

// ArchiveCutoff returns the completion timestamp before which a completed
// ticket counts as archived.
func ArchiveCutoff(now time.Time) time.Time {
	return now.Add(-ArchivePeriod)
}

// Ticket is the aggregate for helpdesk requests. CustomID is the
// human-readable per-tenant sequential code ({tenantKey}-{n}); StatusID is
// the authoritative status pointer and StatusKey its denormalized catalog
// key, populated on every read.
type Ticket struct {
	ID                  string
	TenantID            string
	CustomID            string
	Name                string
	Description         string
	Priority            TicketPriority
	IsPrivate           bool
	RequesterID         string
	DepartmentID        *string
	CategoryID          *string
	ReviewerID          *string
	StatusID            string
	StatusKey           StatusKey
	CurrentTargetUserID *string
	DueDate             *time.Time
	AcceptedAt          *time.Time
	CompletedAt         *time.Time
	RejectedAt          *time.Time
	CanceledAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsArchived reports whether the ticket fell past the archive cutoff.
func (t *Ticket) IsArchived(now time.Time) bool {
	return t.StatusKey == StatusCompleted &&
		t.CompletedAt != nil &&
		t.CompletedAt.Before(ArchiveCutoff(now))
}
