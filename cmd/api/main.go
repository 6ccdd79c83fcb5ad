package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/access"
	httptransport "github.com/spec-kit/account-service/internal/api/http"
	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/cache"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notifier"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
	"github.com/spec-kit/account-service/internal/session"
	"github.com/spec-kit/account-service/internal/verification"
	"github.com/spec-kit/account-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	permissionRepo := repository.NewPermissionRepository(pool)

	// Clients are constructed here and injected; nothing below holds
	// package-level state.
	store := cache.NewRedisStore(redis.Client)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	sessions := session.NewRegistry(store, logger)
	evaluator := access.NewEvaluator(roleRepo)
	engine := verification.NewEngine(store, tokens, sessions, logger, cfg.Auth.Clients, cfg.Verification)

	dispatcher := events.NewInMemoryDispatcher()
	notify := notifier.NewLogNotifier(logger, cfg.Notification)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	accountService := service.NewAccountService(cfg.Auth, cfg.Notification, service.AccountDependencies{
		UserRepo:   userRepo,
		Engine:     engine,
		Notifier:   notify,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, notify, logger)
	worker.StartSecurityEventWorker(notificationService)

	authMiddleware := auth.NewMiddleware(tokens, userRepo, evaluator)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService, accountService),
		Account:        handlers.NewAccountHandler(accountService),
		Admin:          handlers.NewAdminHandler(roleRepo, permissionRepo, authService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
