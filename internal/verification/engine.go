// Package verification implements the two-phase "generate secret, deliver
// out-of-band, accept once, invalidate" protocol shared by password reset,
// account-deletion confirmation, phone OTP and email verification.
//
// Per-secret state machine: ABSENT -> PENDING (set) -> CONSUMED (removed on
// success) | EXPIRED (TTL elapse) | ABSENT (manual remove). There is no way
// back to PENDING except a fresh Phase-1 request.
package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/cache"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/session"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// Deliverer hands a freshly generated secret to the out-of-band delivery
// collaborator (mail or SMS). Delivery is fire-and-forget relative to the
// engine: failures are logged, never propagated, and never roll back the
// stored secret.
type Deliverer func(ctx context.Context, secret string) error

// Engine orchestrates verification flows over the secret store.
type Engine struct {
	store     cache.Store
	tokens    *auth.TokenManager
	sessions  *session.Registry
	logger    *zap.Logger
	audiences []string
	ttls      map[domain.Purpose]time.Duration
	otpLength int
}

// NewEngine wires the engine with explicit dependencies; no package-level
// client state.
func NewEngine(
	store cache.Store,
	tokens *auth.TokenManager,
	sessions *session.Registry,
	logger *zap.Logger,
	audiences []string,
	cfg config.VerificationConfig,
) *Engine {
	return &Engine{
		store:     store,
		tokens:    tokens,
		sessions:  sessions,
		logger:    logger,
		audiences: audiences,
		otpLength: cfg.OTPLength,
		ttls: map[domain.Purpose]time.Duration{
			domain.PurposePasswordReset:     time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
			domain.PurposeDeleteAccount:     time.Duration(cfg.DeleteAccountTTLMinutes) * time.Minute,
			domain.PurposeEmailVerification: time.Duration(cfg.EmailVerificationTTLMinutes) * time.Minute,
			domain.PurposePhoneOTP:          time.Duration(cfg.PhoneOTPTTLMinutes) * time.Minute,
		},
	}
}

// TTL returns the configured secret lifetime for a purpose.
func (e *Engine) TTL(purpose domain.Purpose) time.Duration {
	if ttl, ok := e.ttls[purpose]; ok && ttl > 0 {
		return ttl
	}
	return 30 * time.Minute
}

// Request runs Phase 1 for (purpose, subject). While a secret is already
// live for the key this is a no-op returning the same "sent" outcome: no new
// secret is generated and nothing is delivered, so concurrent requests
// cannot silently replace a link already in the user's inbox.
func (e *Engine) Request(ctx context.Context, purpose domain.Purpose, subjectID string, deliver Deliverer) error {
	key := purpose.Key(subjectID)

	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		return storeErr(err)
	}
	if exists {
		return nil
	}

	ttl := e.TTL(purpose)
	secret, err := e.generate(purpose, subjectID, ttl)
	if err != nil {
		return err
	}

	if err := e.store.Set(ctx, key, secret, ttl); err != nil {
		return storeErr(err)
	}

	if deliver != nil {
		if err := deliver(ctx, secret); err != nil {
			// The stored secret stays valid; the user can be resent the
			// same one or use a side channel.
			e.logger.Warn("secret delivery failed",
				zap.String("purpose", string(purpose)),
				zap.String("subject_id", subjectID),
				zap.Error(err))
		}
	}
	return nil
}

// ConfirmToken runs Phase 2 for link-based flows. The subject is re-derived
// from the presented signed token, then the stored secret must match the
// token exactly. On match the state change runs first; the secret is removed
// only after it succeeds, so a failed state change leaves the link usable
// for retry. Returns the subject that was confirmed.
func (e *Engine) ConfirmToken(ctx context.Context, purpose domain.Purpose, presented string, apply func(ctx context.Context, subjectID string) error) (string, error) {
	claims, err := e.tokens.Verify(presented)
	if err != nil {
		// Externally the same category as a missing secret.
		return "", apperrors.NewInvalidOrExpiredSecret()
	}

	if err := e.confirm(ctx, purpose, claims.Subject, presented, func(ctx context.Context) error {
		return apply(ctx, claims.Subject)
	}); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ConfirmCode runs Phase 2 for OTP flows, where the subject is the
// authenticated caller rather than a token claim.
func (e *Engine) ConfirmCode(ctx context.Context, purpose domain.Purpose, subjectID, presented string, apply func(ctx context.Context) error) error {
	return e.confirm(ctx, purpose, subjectID, presented, apply)
}

// confirm is the shared Phase-2 core. The get-then-remove pair is not atomic
// against the store: two concurrent confirmations may both observe the
// secret as valid once before removal. The secret is single-use in intent
// and the state change is idempotent, so the narrow window is accepted
// rather than hidden.
func (e *Engine) confirm(ctx context.Context, purpose domain.Purpose, subjectID, presented string, apply func(ctx context.Context) error) error {
	key := purpose.Key(subjectID)

	stored, err := e.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return apperrors.NewInvalidOrExpiredSecret()
		}
		return storeErr(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return apperrors.NewInvalidOrExpiredSecret()
	}

	if err := apply(ctx); err != nil {
		return err
	}

	if err := e.store.Remove(ctx, key); err != nil {
		// State already changed; a crash window between the two stores is an
		// accepted outcome and confirm handlers are idempotent.
		e.logger.Warn("secret removal failed after state change",
			zap.String("purpose", string(purpose)),
			zap.String("subject_id", subjectID),
			zap.Error(err))
	}

	switch purpose {
	case domain.PurposePasswordReset, domain.PurposeDeleteAccount:
		// Global logout across every client surface.
		e.sessions.EndAllSessions(ctx, subjectID, e.audiences)
	}

	return nil
}

func (e *Engine) generate(purpose domain.Purpose, subjectID string, ttl time.Duration) (string, error) {
	if purpose.LinkBased() {
		token, _, err := e.tokens.Issue(subjectID, e.audiences, ttl)
		return token, err
	}
	return auth.GenerateOTP(e.otpLength)
}

func storeErr(err error) error {
	if errors.Is(err, cache.ErrUnavailable) {
		return apperrors.NewStoreUnavailable(err)
	}
	return err
}
