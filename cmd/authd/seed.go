package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mongodb "github.com/boilerplate/user-service/internal/infrastructure/db/mongo"
	"github.com/boilerplate/user-service/internal/infrastructure/security"
	"github.com/boilerplate/user-service/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the super admin account if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, _, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		if err := cfg.ValidateSeed(); err != nil {
			return err
		}
		log := logger.Component("seed")

		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName + "-seed",
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := mongodb.Disconnect(client); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect failed")
			}
		}()

		users := mongodb.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return err
		}

		hasher, err := security.NewBcryptHasher(cfg.Security.BcryptCost)
		if err != nil {
			return err
		}
		hash, err := hasher.Hash(ctx, cfg.SuperAdmin.Password)
		if err != nil {
			return fmt.Errorf("hash super admin password: %w", err)
		}

		created, err := users.SeedSuperAdmin(ctx, mongodb.SuperAdmin{
			FirstName:    cfg.SuperAdmin.FirstName,
			LastName:     cfg.SuperAdmin.LastName,
			Email:        cfg.SuperAdmin.Email,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}

		if created {
			log.Info().Str("email", cfg.SuperAdmin.Email).Msg("super admin created")
		} else {
			log.Info().Str("email", cfg.SuperAdmin.Email).Msg("super admin already exists")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
