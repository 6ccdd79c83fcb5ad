package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// TokenManager issues and verifies signed, self-contained bearer tokens.
// Tokens are stateless: verification never touches the secret store. Whether
// a specific token is still the currently-accepted one for its purpose is a
// separate check against the session registry or the verification engine.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a codec around an HS256 signing secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// TokenClaims is the verified content of a bearer token.
type TokenClaims struct {
	Subject   string
	Audiences []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue produces a signed token carrying subject and audience claims.
// A signing failure is a fatal key-management fault, not retried.
func (tm *TokenManager) Issue(subject string, audiences []string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings(audiences),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, apperrors.NewSigningError(err)
	}
	return signed, expiresAt, nil
}

// Verify validates signature and expiry and returns the embedded claims.
// Every failure collapses into the same invalid-token error; callers cannot
// tell expiry from tampering from a malformed payload.
func (tm *TokenManager) Verify(tokenStr string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, apperrors.NewInvalidToken()
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, apperrors.NewInvalidToken()
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.NewInvalidToken()
	}

	out := &TokenClaims{
		Subject:   claims.Subject,
		Audiences: claims.Audience,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
