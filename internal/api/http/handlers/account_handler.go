package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AccountHandler exposes the verification flows.
type AccountHandler struct {
	account *service.AccountService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{account: accountService}
}

// RequestPasswordReset handles POST /auth/password/reset/request. The
// response is identical whether or not the address exists.
func (h *AccountHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	if err := h.account.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AccountHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.Password == "" {
		return apperrors.NewValidationError("token and password required", nil)
	}

	if err := h.account.ConfirmPasswordReset(c.Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"password_changed": true}})
}

// RequestAccountDeletion handles POST /auth/account/delete/request.
func (h *AccountHandler) RequestAccountDeletion(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.account.RequestAccountDeletion(c.Context(), principal.User.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// ConfirmAccountDeletion handles POST /auth/account/delete/confirm. The link
// is self-authenticating, so no bearer token is required.
func (h *AccountHandler) ConfirmAccountDeletion(c *fiber.Ctx) error {
	var req dto.TokenConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	if err := h.account.ConfirmAccountDeletion(c.Context(), req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// RequestEmailVerification handles POST /auth/email/verify/request.
func (h *AccountHandler) RequestEmailVerification(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.account.RequestEmailVerification(c.Context(), principal.User.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// ConfirmEmailVerification handles POST /auth/email/verify/confirm.
func (h *AccountHandler) ConfirmEmailVerification(c *fiber.Ctx) error {
	var req dto.TokenConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	if err := h.account.ConfirmEmailVerification(c.Context(), req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"email_verified": true}})
}

// RequestPhoneVerification handles POST /auth/phone/verify/request.
func (h *AccountHandler) RequestPhoneVerification(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.PhoneVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PhoneNumber == "" {
		return apperrors.NewValidationError("phone_number required", nil)
	}

	if err := h.account.RequestPhoneNumberVerification(c.Context(), principal.User.ID, req.PhoneNumber); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// ConfirmPhoneVerification handles POST /auth/phone/verify/confirm. The OTP
// identifies nothing by itself; the subject is the authenticated caller.
func (h *AccountHandler) ConfirmPhoneVerification(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.PhoneVerifyConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Code == "" {
		return apperrors.NewValidationError("code required", nil)
	}

	if err := h.account.ConfirmPhoneNumberVerification(c.Context(), principal.User.ID, req.Code); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"phone_number_verified": true}})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                  user.ID,
		Name:                user.Name,
		Email:               user.Email,
		EmailVerified:       user.EmailVerified,
		PhoneNumber:         user.PhoneNumber,
		PhoneNumberVerified: user.PhoneNumberVerified,
		Status:              string(user.Status),
	}
}
