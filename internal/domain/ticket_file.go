package domain

import "time"

// TicketFile is attachment metadata linked to a ticket. Upload handling
// lives elsewhere; only the reference is stored here.
type TicketFile struct {
	ID           string
	TenantID     string
	TicketID     string
	UploadedByID string
	StorageKey   string
	FileName     string
	MimeType     string
	SizeBytes    int64
	CreatedAt    time.Time
}
