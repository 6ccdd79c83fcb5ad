package domain

// Purpose namespaces a single-use verification secret. The string value is
// the key prefix in the secret store (`purpose:subjectID`), so other services
// can recognize the namespace for operational debugging.
type Purpose string

const (
	PurposePasswordReset     Purpose = "password-reset"
	PurposeDeleteAccount     Purpose = "delete-account"
	PurposePhoneOTP          Purpose = "phone-otp"
	PurposeEmailVerification Purpose = "email-verification"
)

// Key derives the secret-store key for this purpose and subject.
func (p Purpose) Key(subjectID string) string {
	return string(p) + ":" + subjectID
}

// LinkBased reports whether the secret travels as a signed token in a link
// rather than as a short numeric code.
func (p Purpose) LinkBased() bool {
	return p != PurposePhoneOTP
}
