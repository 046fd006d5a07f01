package domain

import "time"

// TicketTargetUser is one slot in a ticket's ordered assignee chain.
// (TicketID, Order) is unique; Order runs 1..N. The ticket's
// CurrentTargetUserID always equals the user at some slot, normally the
// first at creation and advancing on department hand-off.
type TicketTargetUser struct {
	ID        string
	TenantID  string
	TicketID  string
	UserID    string
	Order     int
	CreatedAt time.Time
}
