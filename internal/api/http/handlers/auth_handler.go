package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and session endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	account *service.AccountService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, accountService *service.AccountService) *AuthHandler {
	return &AuthHandler{auth: authService, account: accountService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	user, err := h.auth.Register(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	// Kick off email verification; the account can log in before the link
	// is used but stays PROVISIONED until then.
	if err := h.account.RequestEmailVerification(c.Context(), user.ID); err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"user": userResponse(user)},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.ClientID == "" {
		return apperrors.NewValidationError("email, password, client_id required", nil)
	}

	user, token, exp, err := h.auth.Login(c.Context(), req.Email, req.Password, req.ClientID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" {
		return apperrors.NewValidationError("client_id required", nil)
	}

	if err := h.auth.Logout(c.Context(), req.ClientID, principal.User.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password and new_password required", nil)
	}

	if err := h.auth.ChangePassword(c.Context(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"password_changed": true}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": userResponse(principal.User)}})
}
