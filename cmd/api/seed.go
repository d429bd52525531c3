package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/loan-backoffice/internal/persistence"
	"github.com/spec-kit/loan-backoffice/internal/repository"
	"github.com/spec-kit/loan-backoffice/internal/service"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the initial administrator and default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if cfg.Seed.AdminPassword == "" {
			return errors.New("SEED_ADMIN_PASSWORD must be set")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()

		pool := pg.PoolHandle()
		accounts := service.NewAccountService(service.AccountDependencies{
			AccountRepo:   repository.NewAccountRepository(pool),
			BcryptCost:    cfg.Auth.BcryptCost,
			SellerBaseURL: cfg.App.SellerBaseURL,
			Logger:        logger,
		})
		created, err := accounts.EnsureAdmin(ctx, cfg.Seed.AdminName, cfg.Seed.AdminEmail, cfg.Seed.AdminCPF, cfg.Seed.AdminPassword)
		if err != nil {
			return err
		}
		logger.Info("admin account", zap.String("email", cfg.Seed.AdminEmail), zap.Bool("created", created))

		backoffice := service.NewBackofficeService(service.BackofficeDependencies{
			SettingsRepo: repository.NewSettingsRepository(pool),
		})
		inserted, err := backoffice.EnsureDefaultSettings(ctx)
		if err != nil {
			return err
		}
		logger.Info("application settings", zap.Bool("created", inserted))
		return nil
	},
}
