package domain

import "time"

// User is a tenant member resolved through the directory. Only active
// users may occupy a target-user chain slot.
type User struct {
	ID           string
	TenantID     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	DepartmentID *string
	RoleID       *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName renders the display name used in notification messages.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Role is a named permission bundle within a tenant.
type Role struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}
