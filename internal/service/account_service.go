package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notifier"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/verification"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AccountService runs the out-of-band verification flows: password reset,
// account deletion, email verification and phone OTP.
type AccountService struct {
	users      repository.UserRepository
	engine     *verification.Engine
	notifier   notifier.Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	linkBase   string
}

// AccountDependencies bundles collaborator requirements for the service.
type AccountDependencies struct {
	UserRepo   repository.UserRepository
	Engine     *verification.Engine
	Notifier   notifier.Notifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(authCfg config.AuthConfig, notifyCfg config.NotificationConfig, deps AccountDependencies) *AccountService {
	return &AccountService{
		users:      deps.UserRepo,
		engine:     deps.Engine,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: authCfg.BcryptCost,
		linkBase:   notifyCfg.ResetLinkURL,
	}
}

// RequestPasswordReset starts the reset flow for an email address. An
// unknown address yields the same "sent" outcome as a known one, so the
// endpoint cannot be used to enumerate accounts. A request while a reset
// secret is already live resends nothing.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if user.Blocked() {
		return apperrors.NewUnauthorized("account blocked")
	}

	err = s.engine.Request(ctx, domain.PurposePasswordReset, user.ID, func(ctx context.Context, secret string) error {
		link := fmt.Sprintf("%s/reset-password?token=%s", s.linkBase, secret)
		return s.notifier.SendEmail(ctx, user.Email, "Reset your password", link)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventVerificationRequested, user.ID, events.VerificationRequestedPayload{
		Purpose: string(domain.PurposePasswordReset),
	})
	return nil
}

// ConfirmPasswordReset finishes the reset flow: on secret match the password
// is updated first, the secret removed after, and every session revoked.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	var email string
	subjectID, err := s.engine.ConfirmToken(ctx, domain.PurposePasswordReset, token, func(ctx context.Context, subjectID string) error {
		user, err := s.users.GetByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewInvalidOrExpiredSecret()
			}
			return err
		}
		email = user.Email

		hash, err := auth.HashPassword(newPassword, s.bcryptCost)
		if err != nil {
			return err
		}
		return s.users.UpdatePassword(ctx, subjectID, hash)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, subjectID, events.PasswordChangedPayload{
		Email:    email,
		ViaReset: true,
	})
	return nil
}

// RequestAccountDeletion sends the irreversible-deletion confirmation link
// to the authenticated caller.
func (s *AccountService) RequestAccountDeletion(ctx context.Context, subjectID string) error {
	user, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}

	err = s.engine.Request(ctx, domain.PurposeDeleteAccount, user.ID, func(ctx context.Context, secret string) error {
		link := fmt.Sprintf("%s/delete-account?token=%s", s.linkBase, secret)
		return s.notifier.SendEmail(ctx, user.Email, "Confirm account deletion", link)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventVerificationRequested, user.ID, events.VerificationRequestedPayload{
		Purpose: string(domain.PurposeDeleteAccount),
	})
	return nil
}

// ConfirmAccountDeletion deletes the account on secret match and revokes
// every session. Deletion is idempotent, so a retried confirmation after a
// timeout cannot fail on the already-deleted row.
func (s *AccountService) ConfirmAccountDeletion(ctx context.Context, token string) error {
	var email string
	subjectID, err := s.engine.ConfirmToken(ctx, domain.PurposeDeleteAccount, token, func(ctx context.Context, subjectID string) error {
		if user, err := s.users.GetByID(ctx, subjectID); err == nil {
			email = user.Email
		}
		return s.users.Delete(ctx, subjectID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventAccountDeleted, subjectID, events.AccountDeletedPayload{Email: email})
	return nil
}

// RequestEmailVerification sends the verification link to the caller's
// address. Already-verified accounts get the same "sent" outcome with
// nothing delivered.
func (s *AccountService) RequestEmailVerification(ctx context.Context, subjectID string) error {
	user, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	err = s.engine.Request(ctx, domain.PurposeEmailVerification, user.ID, func(ctx context.Context, secret string) error {
		link := fmt.Sprintf("%s/verify-email?token=%s", s.linkBase, secret)
		return s.notifier.SendEmail(ctx, user.Email, "Verify your email address", link)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventVerificationRequested, user.ID, events.VerificationRequestedPayload{
		Purpose: string(domain.PurposeEmailVerification),
	})
	return nil
}

// ConfirmEmailVerification marks the address verified on secret match.
func (s *AccountService) ConfirmEmailVerification(ctx context.Context, token string) error {
	subjectID, err := s.engine.ConfirmToken(ctx, domain.PurposeEmailVerification, token, func(ctx context.Context, subjectID string) error {
		if err := s.users.SetEmailVerified(ctx, subjectID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewInvalidOrExpiredSecret()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventEmailVerified, subjectID, nil)
	return nil
}

// RequestPhoneNumberVerification stores the new phone number (clearing any
// previous verified flag) and sends a short numeric code by SMS. While a
// code is live for the caller, repeat requests send nothing.
func (s *AccountService) RequestPhoneNumberVerification(ctx context.Context, subjectID, phoneNumber string) error {
	if err := s.users.SetPhoneNumber(ctx, subjectID, phoneNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}

	err := s.engine.Request(ctx, domain.PurposePhoneOTP, subjectID, func(ctx context.Context, secret string) error {
		return s.notifier.SendSMS(ctx, phoneNumber, secret)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventVerificationRequested, subjectID, events.VerificationRequestedPayload{
		Purpose: string(domain.PurposePhoneOTP),
	})
	return nil
}

// ConfirmPhoneNumberVerification accepts the OTP from the authenticated
// caller and marks the number verified.
func (s *AccountService) ConfirmPhoneNumberVerification(ctx context.Context, subjectID, code string) error {
	err := s.engine.ConfirmCode(ctx, domain.PurposePhoneOTP, subjectID, code, func(ctx context.Context) error {
		if err := s.users.SetPhoneNumberVerified(ctx, subjectID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewInvalidOrExpiredSecret()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventPhoneNumberVerified, subjectID, nil)
	return nil
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
