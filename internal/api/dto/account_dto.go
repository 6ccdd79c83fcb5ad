package dto

// PasswordResetRequest starts the reset flow.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest finishes the reset flow.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// TokenConfirmRequest carries a link token for confirm endpoints.
type TokenConfirmRequest struct {
	Token string `json:"token"`
}

// PhoneVerifyRequest starts phone number verification.
type PhoneVerifyRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// PhoneVerifyConfirmRequest carries the SMS code.
type PhoneVerifyConfirmRequest struct {
	Code string `json:"code"`
}

// UserResponse is the public account shape.
type UserResponse struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	EmailVerified       bool    `json:"email_verified"`
	PhoneNumber         *string `json:"phone_number,omitempty"`
	PhoneNumberVerified bool    `json:"phone_number_verified"`
	Status              string  `json:"status"`
}
