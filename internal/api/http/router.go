package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Account        *handlers.AccountHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	// Confirm endpoints for link-based flows carry self-authenticating
	// signed tokens; no bearer token required.
	authGroup.Post("/password/reset/request", cfg.Account.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Account.ConfirmPasswordReset)
	authGroup.Post("/account/delete/confirm", cfg.Account.ConfirmAccountDeletion)
	authGroup.Post("/email/verify/confirm", cfg.Account.ConfirmEmailVerification)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Post("/password/change", cfg.Auth.ChangePassword)
	protected.Post("/account/delete/request", cfg.Account.RequestAccountDeletion)
	protected.Post("/email/verify/request", cfg.Account.RequestEmailVerification)
	protected.Post("/phone/verify/request", cfg.Account.RequestPhoneVerification)
	protected.Post("/phone/verify/confirm", cfg.Account.ConfirmPhoneVerification)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("/roles", cfg.AuthMiddleware.RequirePermission("read", "role"), cfg.Admin.ListRoles)
	admin.Get("/permissions", cfg.AuthMiddleware.RequirePermission("read", "permission"), cfg.Admin.ListPermissions)
	admin.Get("/users/:id/logged-in", cfg.AuthMiddleware.RequirePermission("read", "user"), cfg.Admin.UserLoggedIn)
}
