package domain

import "time"

// CorrectionRequest records why a verified ticket was sent back. Created
// exactly once per requestCorrection call, immutable afterward.
type CorrectionRequest struct {
	ID            string
	TenantID      string
	TicketID      string
	RequestedByID string
	TargetUserID  *string
	Reason        string
	Details       string
	CreatedAt     time.Time
}

// CancellationReason records why the requester canceled a ticket.
type CancellationReason struct {
	ID           string
	TenantID     string
	TicketID     string
	CanceledByID string
	Reason       string
	Details      string
	CreatedAt    time.Time
}

// DisapprovalReason records why a reviewer rejected a ticket.
type DisapprovalReason struct {
	ID           string
	TenantID     string
	TicketID     string
	RejectedByID string
	Reason       string
	Details      string
	CreatedAt    time.Time
}
