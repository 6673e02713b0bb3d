package domain

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role string at the write boundary.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// User is a registered member identified by an opaque numeric id assigned
// by the chat platform.
type User struct {
	ID        int64
	Handle    string
	Allowed   bool
	Role      Role
	CreatedAt time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
