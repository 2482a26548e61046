package domain

import "time"

// Role determines what a user may do. Roles are flat, not hierarchical.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RolePatron    Role = "PATRON"
)

// IsStaff reports whether the role may manage the catalog and see all
// borrow records.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLibrarian
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleLibrarian, RolePatron:
		return Role(s), true
	}
	return "", false
}

// User represents an account known to the system.
type User struct {
	ID           int64
	GUID         string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Status       EntityStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated actor performing an operation. It is passed
// explicitly into every service call; nothing reads it from ambient state.
type Principal struct {
	UserID int64
	GUID   string
	Role   Role
}

// AsPrincipal derives the request principal for this user.
func (u *User) AsPrincipal() Principal {
	return Principal{UserID: u.ID, GUID: u.GUID, Role: u.Role}
}
