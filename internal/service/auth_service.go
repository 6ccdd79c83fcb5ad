package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/cache"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/session"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and session lifecycle.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	sessions   *session.Registry
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	tokenTTL   time.Duration
	clients    []string
}

// AuthDependencies bundles collaborator requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	Sessions   *session.Registry
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
		tokenTTL:   cfg.AccessTokenTTL(),
		clients:    cfg.Clients,
	}
}

// Register creates a new account. The account stays PROVISIONED until email
// verification flips it ACTIVE.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusProvisioned,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, "", events.UserRegisteredPayload{
		Email: user.Email,
		Name:  user.Name,
	})
	return user, nil
}

// Login authenticates credentials for one client audience, issues a bearer
// token accepted by every known audience, and records a session marker for
// the requesting audience with TTL equal to the token lifetime.
func (s *AuthService) Login(ctx context.Context, email, password, audience string) (*domain.User, string, time.Time, error) {
	if !s.KnownAudience(audience) {
		return nil, "", time.Time{}, apperrors.NewValidationError("unknown client", map[string]any{"client_id": audience})
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}
	if user.Blocked() {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account blocked")
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, s.clients, s.tokenTTL)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	if err := s.sessions.StartSession(ctx, audience, user.ID, token, s.tokenTTL); err != nil {
		return nil, "", time.Time{}, mapStoreErr(err)
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, audience, events.LoginPayload{
		Email:    user.Email,
		Audience: audience,
	})
	return user, token, expiresAt, nil
}

// Logout ends the session for one audience. Ending an absent session is
// success, so a retried logout cannot fail.
func (s *AuthService) Logout(ctx context.Context, audience, subjectID string) error {
	if err := s.sessions.EndSession(ctx, audience, subjectID); err != nil {
		return mapStoreErr(err)
	}
	s.publish(ctx, events.EventUserLoggedOut, subjectID, audience, nil)
	return nil
}

// ChangePassword verifies the current password, updates the hash, then
// revokes every session. Revocation is best-effort and never rolls back the
// password change.
func (s *AuthService) ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthenticated("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, subjectID, hash); err != nil {
		return err
	}

	s.sessions.EndAllSessions(ctx, subjectID, s.clients)
	s.publish(ctx, events.EventPasswordChanged, subjectID, "", events.PasswordChangedPayload{
		Email: user.Email,
	})
	return nil
}

// IsLoggedInAnywhere reports whether the subject holds a live session for
// any known client audience.
func (s *AuthService) IsLoggedInAnywhere(ctx context.Context, subjectID string) (bool, error) {
	active, err := s.sessions.IsLoggedInAnywhere(ctx, subjectID, s.clients)
	if err != nil {
		return false, mapStoreErr(err)
	}
	return active, nil
}

// KnownAudience reports whether the client identifier is configured.
func (s *AuthService) KnownAudience(audience string) bool {
	for _, client := range s.clients {
		if client == audience {
			return true
		}
	}
	return false
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID, audience string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Audience:  audience,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func mapStoreErr(err error) error {
	if errors.Is(err, cache.ErrUnavailable) {
		return apperrors.NewStoreUnavailable(err)
	}
	return err
}
