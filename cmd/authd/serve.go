package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/boilerplate/user-service/internal/api"
	"github.com/boilerplate/user-service/internal/api/handler"
	"github.com/boilerplate/user-service/internal/core/service"
	mongodb "github.com/boilerplate/user-service/internal/infrastructure/db/mongo"
	redisdb "github.com/boilerplate/user-service/internal/infrastructure/db/redis"
	"github.com/boilerplate/user-service/internal/infrastructure/notify"
	"github.com/boilerplate/user-service/internal/infrastructure/security"
	"github.com/boilerplate/user-service/internal/pkg/config"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, log, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		return serve(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongodb.Disconnect(mongoClient); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:       cfg.Redis.Addr,
		DB:         cfg.Redis.DB,
		ClientName: serviceName,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Security ---
	hasher, err := security.NewBcryptHasher(cfg.Security.BcryptCost)
	if err != nil {
		return err
	}
	issuer, err := security.NewJWTIssuer(security.IssuerConfig{
		Issuer:  serviceName,
		Access:  security.KeyConfig{Secret: cfg.Security.AccessSecret, TTL: cfg.Security.AccessTTL},
		Refresh: security.KeyConfig{Secret: cfg.Security.RefreshSecret, TTL: cfg.Security.RefreshTTL},
		Reset:   security.KeyConfig{Secret: cfg.Security.ResetSecret, TTL: cfg.Security.ResetTTL},
	})
	if err != nil {
		return err
	}
	registry := redisdb.NewTokenRegistry(rdb)

	// --- Notifications ---
	dispatcher := notify.NewDispatcher(newSender(cfg, log), notify.Options{
		Workers:     cfg.Mail.Workers,
		QueueSize:   cfg.Mail.QueueSize,
		SendTimeout: cfg.Mail.SendTimeout,
	}, log)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	// --- Services & HTTP ---
	e := api.NewRouter(api.Dependencies{
		Session:  service.NewSessionService(users, hasher, issuer, registry, cfg.Security.DefaultPassword, log),
		Recovery: service.NewRecoveryService(users, hasher, issuer, registry, dispatcher, log),
		Tokens:   issuer,
		Users:    users,
		Cookie: handler.CookieConfig{
			Secure: cfg.Cookie.Secure,
			MaxAge: cfg.Security.RefreshTTL,
		},
		ResetTTL: cfg.Security.ResetTTL,
		Checks: map[string]handler.CheckFunc{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
		Logger: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// newSender picks SMTP delivery when a host is configured and falls back to
// logging the reset link otherwise.
func newSender(cfg *config.Config, log zerolog.Logger) notify.Sender {
	if cfg.Mail.SMTPHost == "" {
		if !cfg.IsDevelopment() {
			log.Warn().Msg("SMTP_HOST is empty; password reset links are only logged")
		}
		return notify.NewLogSender(cfg.Security.ResetURL, log)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.SMTPUsername,
		Password: cfg.Mail.SMTPPassword,
		From:     cfg.Mail.From,
		ResetURL: cfg.Security.ResetURL,
		LinkTTL:  cfg.Security.ResetTTL,
		Timeout:  cfg.Mail.SendTimeout,
	})
}
