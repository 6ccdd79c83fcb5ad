package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/access"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller for one request. The
// permission set is resolved fresh on every request; nothing here survives
// the request scope.
type Principal struct {
	User    *domain.User
	Subject *access.Subject
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	tokens    *TokenManager
	users     repository.UserRepository
	evaluator *access.Evaluator
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository, evaluator *access.Evaluator) *Middleware {
	return &Middleware{tokens: tokens, users: users, evaluator: evaluator}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.Verify(parts[1])
	if err != nil {
		return err
	}

	user, err := m.users.GetByID(c.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthenticated("account no longer exists")
		}
		return apperrors.MapError(err)
	}
	if user.Blocked() {
		return apperrors.NewUnauthorized("account blocked")
	}

	subject, err := m.evaluator.Resolve(c.Context(), user.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{User: user, Subject: subject})
	return c.Next()
}

// RequirePermission enforces an (action, resource) grant for the route.
func (m *Middleware) RequirePermission(action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		var subject *access.Subject
		if principal != nil {
			subject = principal.Subject
		}
		if err := m.evaluator.Enforce(subject, action, resource); err != nil {
			return err
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
