package domain

import "time"

// PermissionEmailNotifications gates outbound email per tenant
// subscription.
const PermissionEmailNotifications = "email_notifications"

// Tenant is an isolated customer workspace. CustomKey prefixes every
// ticket code issued for the tenant.
type Tenant struct {
	ID        string
	CustomKey string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
