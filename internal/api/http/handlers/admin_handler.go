package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
)

// AdminHandler exposes read-only role/permission administration and the
// cross-audience login lookup. Routes are guarded by RequirePermission.
type AdminHandler struct {
	roles       repository.RoleRepository
	permissions repository.PermissionRepository
	auth        *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(roles repository.RoleRepository, permissions repository.PermissionRepository, authService *service.AuthService) *AdminHandler {
	return &AdminHandler{roles: roles, permissions: permissions, auth: authService}
}

// ListRoles handles GET /admin/roles.
func (h *AdminHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.roles.List(c.Context())
	if err != nil {
		return err
	}

	out := make([]fiber.Map, 0, len(roles))
	for _, role := range roles {
		perms := make([]fiber.Map, 0, len(role.Permissions))
		for _, perm := range role.Permissions {
			perms = append(perms, fiber.Map{
				"id":       perm.ID,
				"name":     perm.Name,
				"action":   perm.Action,
				"resource": perm.Resource,
			})
		}
		out = append(out, fiber.Map{
			"id":          role.ID,
			"name":        role.Name,
			"description": role.Description,
			"permissions": perms,
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"roles": out}})
}

// ListPermissions handles GET /admin/permissions.
func (h *AdminHandler) ListPermissions(c *fiber.Ctx) error {
	perms, err := h.permissions.List(c.Context())
	if err != nil {
		return err
	}

	out := make([]fiber.Map, 0, len(perms))
	for _, perm := range perms {
		out = append(out, fiber.Map{
			"id":          perm.ID,
			"name":        perm.Name,
			"action":      perm.Action,
			"resource":    perm.Resource,
			"description": perm.Description,
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"permissions": out}})
}

// UserLoggedIn handles GET /admin/users/:id/logged-in.
func (h *AdminHandler) UserLoggedIn(c *fiber.Ctx) error {
	active, err := h.auth.IsLoggedInAnywhere(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_in": active}})
}
