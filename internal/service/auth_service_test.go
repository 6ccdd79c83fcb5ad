package service

import (
	"context"
	"testing"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

func TestRegisterCreatesProvisionedAccount(t *testing.T) {
	h := newHarness(t)

	user := h.register(t, "alice@example.com", "s3cret-pass")

	if user.ID == "" {
		t.Fatal("no id assigned")
	}
	if user.Status != domain.UserStatusProvisioned {
		t.Errorf("status = %q, want PROVISIONED before email verification", user.Status)
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Fatal("password stored in clear")
	}
	if err := auth.ComparePassword(user.PasswordHash, "s3cret-pass"); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	types := h.dispatcher.types()
	if len(types) != 1 || types[0] != events.EventUserRegistered {
		t.Errorf("events = %v, want [user_registered]", types)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice@example.com", "s3cret-pass")

	_, err := h.auth.Register(context.Background(), "Other", "alice@example.com", "other-pass")
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
}

func TestLoginIssuesTokenAndSessionMarker(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registered := h.register(t, "alice@example.com", "s3cret-pass")

	user, token, expiresAt, err := h.auth.Login(ctx, "alice@example.com", "s3cret-pass", "web")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Error("login returned a different account")
	}
	if expiresAt.IsZero() {
		t.Error("no expiry returned")
	}

	// The token carries every configured audience...
	claims, err := h.auth.tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("token subject = %q, want %q", claims.Subject, user.ID)
	}
	if len(claims.Audiences) != len(h.clients) {
		t.Errorf("token audiences = %v, want all of %v", claims.Audiences, h.clients)
	}

	// ...but the session marker exists only for the requesting client.
	if active, _ := h.sessions.IsActive(ctx, "web", user.ID); !active {
		t.Error("no session marker for the requesting client")
	}
	if active, _ := h.sessions.IsActive(ctx, "mobile", user.ID); active {
		t.Error("session marker leaked to another client")
	}
}

func TestLoginRejectsUnknownClient(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice@example.com", "s3cret-pass")

	_, _, _, err := h.auth.Login(context.Background(), "alice@example.com", "s3cret-pass", "smart-fridge")
	if !apperrors.IsCode(err, apperrors.CodeValidationFailed) {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

// Unknown email and wrong password produce the same error, so a caller
// cannot tell which half of the credential pair was wrong.
func TestLoginBadCredentialsAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "alice@example.com", "s3cret-pass")

	_, _, _, errUnknown := h.auth.Login(ctx, "nobody@example.com", "s3cret-pass", "web")
	_, _, _, errWrongPw := h.auth.Login(ctx, "alice@example.com", "wrong-pass", "web")

	for _, err := range []error{errUnknown, errWrongPw} {
		if !apperrors.IsCode(err, apperrors.CodeUnauthenticated) {
			t.Fatalf("err = %v, want UNAUTHENTICATED", err)
		}
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("error text differs: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLoginBlockedAccountDenied(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.register(t, "alice@example.com", "s3cret-pass")
	h.users.update(user.ID, func(u *domain.User) { u.Status = domain.UserStatusBlocked })

	_, _, _, err := h.auth.Login(ctx, "alice@example.com", "s3cret-pass", "web")
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("err = %v, want UNAUTHORIZED", err)
	}
	if active, _ := h.sessions.IsActive(ctx, "web", user.ID); active {
		t.Error("blocked login left a session marker")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "alice@example.com", "s3cret-pass")
	user := h.login(t, "alice@example.com", "s3cret-pass", "web")

	if err := h.auth.Logout(ctx, "web", user.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if active, _ := h.sessions.IsActive(ctx, "web", user.ID); active {
		t.Error("session survived logout")
	}

	// Logging out again must succeed.
	if err := h.auth.Logout(ctx, "web", user.ID); err != nil {
		t.Fatalf("repeated logout failed: %v", err)
	}
}

func TestLogoutLeavesOtherClientsLoggedIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "alice@example.com", "s3cret-pass")
	h.login(t, "alice@example.com", "s3cret-pass", "web")
	user := h.login(t, "alice@example.com", "s3cret-pass", "mobile")

	if err := h.auth.Logout(ctx, "web", user.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if active, _ := h.sessions.IsActive(ctx, "mobile", user.ID); !active {
		t.Error("logout of one client ended another client's session")
	}
	anywhere, err := h.auth.IsLoggedInAnywhere(ctx, user.ID)
	if err != nil || !anywhere {
		t.Fatalf("IsLoggedInAnywhere = %v, %v; want true", anywhere, err)
	}
}

func TestChangePasswordRevokesAllSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "alice@example.com", "s3cret-pass")
	h.login(t, "alice@example.com", "s3cret-pass", "web")
	user := h.login(t, "alice@example.com", "s3cret-pass", "mobile")

	if err := h.auth.ChangePassword(ctx, user.ID, "s3cret-pass", "brand-new-pass"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	anywhere, err := h.auth.IsLoggedInAnywhere(ctx, user.ID)
	if err != nil || anywhere {
		t.Fatalf("sessions survived password change: %v, %v", anywhere, err)
	}

	// Old password is dead, new one works.
	if _, _, _, err := h.auth.Login(ctx, "alice@example.com", "s3cret-pass", "web"); !apperrors.IsCode(err, apperrors.CodeUnauthenticated) {
		t.Fatalf("old password still accepted: %v", err)
	}
	h.login(t, "alice@example.com", "brand-new-pass", "web")
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "alice@example.com", "s3cret-pass")
	user := h.login(t, "alice@example.com", "s3cret-pass", "web")

	err := h.auth.ChangePassword(ctx, user.ID, "wrong-pass", "brand-new-pass")
	if !apperrors.IsCode(err, apperrors.CodeUnauthenticated) {
		t.Fatalf("err = %v, want UNAUTHENTICATED", err)
	}

	// The failed attempt changed nothing: original password still logs in
	// and the existing session is intact.
	if active, _ := h.sessions.IsActive(ctx, "web", user.ID); !active {
		t.Error("failed password change ended a session")
	}
	h.login(t, "alice@example.com", "s3cret-pass", "mobile")
}

func TestKnownAudience(t *testing.T) {
	h := newHarness(t)

	if !h.auth.KnownAudience("web") || !h.auth.KnownAudience("mobile") {
		t.Error("configured client rejected")
	}
	if h.auth.KnownAudience("smart-fridge") {
		t.Error("unconfigured client accepted")
	}
}
