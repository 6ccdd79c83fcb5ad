package auth

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, expiresAt, err := tm.Issue("user-1", []string{"web", "mobile"}, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry not in the future: %v", expiresAt)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if len(claims.Audiences) != 2 || claims.Audiences[0] != "web" || claims.Audiences[1] != "mobile" {
		t.Errorf("audiences = %v, want [web mobile]", claims.Audiences)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, _, err := tm.Issue("user-1", []string{"web"}, -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := tm.Verify(token); !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, _, err := tm.Issue("user-1", []string{"web"}, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"

	if _, err := tm.Verify(tampered); !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a").Issue("user-1", []string{"web"}, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := NewTokenManager("secret-b").Verify(token); !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN, got %v", err)
	}
}

// Expiry, tampering and garbage must be externally indistinguishable.
func TestVerifyFailuresAreOpaque(t *testing.T) {
	tm := NewTokenManager("test-secret")

	expired, _, _ := tm.Issue("user-1", []string{"web"}, -time.Minute)
	valid, _, _ := tm.Issue("user-1", []string{"web"}, time.Hour)

	cases := map[string]string{
		"expired":   expired,
		"tampered":  valid[:len(valid)-2] + "xx",
		"malformed": "not.a.token",
	}
	for name, token := range cases {
		_, err := tm.Verify(token)
		var domainErr *apperrors.DomainError
		if !errors.As(err, &domainErr) {
			t.Fatalf("%s: expected DomainError, got %v", name, err)
		}
		if domainErr.Code != apperrors.CodeInvalidToken {
			t.Errorf("%s: code = %q, want %q", name, domainErr.Code, apperrors.CodeInvalidToken)
		}
		if domainErr.Message != "invalid or expired token" {
			t.Errorf("%s: message leaks failure cause: %q", name, domainErr.Message)
		}
	}
}
