package domain

import "time"

// StatusAction is a tenant-configurable transition. Actions only apply to
// non-default statuses; the fixed built-in graph is handled by the
// workflow engine's dedicated operations, never through this table.
type StatusAction struct {
	ID           string
	TenantID     string
	FromStatusID string
	ToStatusID   *string
	Title        string
	CreatedAt    time.Time
}
