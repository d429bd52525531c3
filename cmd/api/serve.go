package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/loan-backoffice/internal/api/http"
	"github.com/spec-kit/loan-backoffice/internal/api/http/handlers"
	"github.com/spec-kit/loan-backoffice/internal/auth"
	"github.com/spec-kit/loan-backoffice/internal/events"
	"github.com/spec-kit/loan-backoffice/internal/observability"
	"github.com/spec-kit/loan-backoffice/internal/persistence"
	"github.com/spec-kit/loan-backoffice/internal/repository"
	"github.com/spec-kit/loan-backoffice/internal/service"
	"github.com/spec-kit/loan-backoffice/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
				logger.Error("failed to run migrations", zap.Error(err))
				return err
			}
		}

		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect postgres", zap.Error(err))
			return err
		}
		defer pg.Close()

		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()

		var metrics *observability.Metrics
		if cfg.Metrics.Enabled {
			metrics = observability.NewMetrics()
		}

		pool := pg.PoolHandle()
		accountRepo := repository.NewAccountRepository(pool)
		proposalRepo := repository.NewProposalRepository(pool)
		logRepo := repository.NewLogRepository(pool)
		settingsRepo := repository.NewSettingsRepository(pool)
		activityRepo := repository.NewActivityRepository(pool)

		dispatcher := events.NewInMemoryDispatcher(logger)
		activityService := service.NewActivityService(activityRepo, dispatcher, logger)
		worker.StartActivityWorker(activityService)

		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
		policy := auth.NewPolicy(cfg.Auth.SignInPath)

		authService := service.NewAuthService(*cfg, service.AuthDependencies{
			AccountRepo:  accountRepo,
			TokenManager: tokens,
			Throttle:     persistence.NewLoginThrottle(redis, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow()),
			Dispatcher:   dispatcher,
			Logger:       logger,
			Metrics:      metrics,
		})
		accountService := service.NewAccountService(service.AccountDependencies{
			AccountRepo:   accountRepo,
			Dispatcher:    dispatcher,
			BcryptCost:    cfg.Auth.BcryptCost,
			SellerBaseURL: cfg.App.SellerBaseURL,
			Logger:        logger,
		})
		proposalService := service.NewProposalService(service.ProposalDependencies{
			ProposalRepo: proposalRepo,
			LogRepo:      logRepo,
			Dispatcher:   dispatcher,
			Logger:       logger,
		})
		backofficeService := service.NewBackofficeService(service.BackofficeDependencies{
			AccountRepo:  accountRepo,
			ProposalRepo: proposalRepo,
			SettingsRepo: settingsRepo,
			LogRepo:      logRepo,
		})

		healthDeps := map[string]handlers.Pinger{"postgres": pg}
		if redis.Client != nil {
			healthDeps["redis"] = redis
		}

		app := fiber.New(fiber.Config{
			AppName:      cfg.App.Name,
			ErrorHandler: httptransport.ErrorHandler,
		})
		httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

		routes := httptransport.RouteConfig{
			Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
			Auth:       handlers.NewAuthHandler(authService, policy, handlers.CookieSettings{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}),
			Users:      handlers.NewUsersHandler(accountService),
			Proposals:  handlers.NewProposalsHandler(proposalService),
			Backoffice: handlers.NewBackofficeHandler(backofficeService, activityService),
			Pages:      handlers.NewPagesHandler(cfg.App.Name, policy),
			Gate:       auth.NewGate(tokens, policy, cfg.Auth.CookieName, metrics),
		}
		if metrics != nil {
			routes.Metrics = metrics
			routes.MetricsPath = cfg.Metrics.Path
		}
		httptransport.RegisterRoutes(app, routes)

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Listen(cfg.App.Addr())
		}()

		select {
		case err := <-errCh:
			logger.Error("fiber listen", zap.Error(err))
			return err
		case sig := <-waitForShutdown():
			logger.Info("shutting down", zap.String("signal", sig.String()))
		}

		return app.Shutdown()
	},
}

func waitForShutdown() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
