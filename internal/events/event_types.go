package events

import "time"

// EventType enumerates supported security event identifiers.
type EventType string

const (
	EventUserRegistered        EventType = "user_registered"
	EventUserLoggedIn          EventType = "user_logged_in"
	EventUserLoggedOut         EventType = "user_logged_out"
	EventPasswordChanged       EventType = "password_changed"
	EventEmailVerified         EventType = "email_verified"
	EventPhoneNumberVerified   EventType = "phone_number_verified"
	EventAccountDeleted        EventType = "account_deleted"
	EventVerificationRequested EventType = "verification_requested"
)

// Event represents a security event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Audience  string      `json:"audience,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// UserRegisteredPayload accompanies user_registered.
type UserRegisteredPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginPayload accompanies user_logged_in.
type LoginPayload struct {
	Email    string `json:"email"`
	Audience string `json:"audience"`
}

// PasswordChangedPayload accompanies password_changed.
type PasswordChangedPayload struct {
	Email string `json:"email"`
	// ViaReset distinguishes reset-link changes from in-session changes.
	ViaReset bool `json:"via_reset"`
}

// VerificationRequestedPayload accompanies verification_requested.
type VerificationRequestedPayload struct {
	Purpose string `json:"purpose"`
}

// AccountDeletedPayload accompanies account_deleted.
type AccountDeletedPayload struct {
	Email string `json:"email"`
}
