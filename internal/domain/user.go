package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusProvisioned UserStatus = "PROVISIONED"
	UserStatusActive      UserStatus = "ACTIVE"
	UserStatusBlocked     UserStatus = "BLOCKED"
)

// User is the domain model for account holders.
type User struct {
	ID                  string
	Name                string
	Email               string
	EmailVerified       bool
	PhoneNumber         *string
	PhoneNumberVerified bool
	PasswordHash        string
	Locale              string
	Status              UserStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Blocked reports whether the account is barred from auth flows.
func (u *User) Blocked() bool {
	return u.Status == UserStatusBlocked
}
