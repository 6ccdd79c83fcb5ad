package domain

import "time"

// Sentinel action/resource granting every permission check. Held only by the
// root role.
const (
	ActionAll   = "all"
	ResourceAll = "all"
)

// Permission is an (action, resource) pair, globally unique by name.
type Permission struct {
	ID          string
	Name        string
	Action      string
	Resource    string
	Description string
	CreatedAt   time.Time
}

// GrantsAll reports whether this is the root escape-hatch permission.
func (p Permission) GrantsAll() bool {
	return p.Action == ActionAll && p.Resource == ResourceAll
}

// Role is a named set of permissions, many-to-many with users.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
