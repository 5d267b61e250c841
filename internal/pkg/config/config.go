package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Security   SecurityConfig
	Cookie     CookieConfig
	SuperAdmin SuperAdminConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	Mail       MailConfig
}

type SecurityConfig struct {
	BcryptCost int `env:"BCRYPT_SALT_ROUNDS, default=12"`

	AccessSecret  string        `env:"JWT_ACCESS_SECRET"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_EXPIRES_IN,  default=15m"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_EXPIRES_IN, default=168h"`
	ResetSecret   string        `env:"RESET_PASSWORD_SECRET"`
	ResetTTL      time.Duration `env:"RESET_PASSWORD_EXPIRES_IN, default=5m"`
	ResetURL      string        `env:"RESET_PASSWORD_URL, default=http://localhost:3000/reset-password"`

	DefaultPassword string `env:"DEFAULT_USER_PASS"`
}

type CookieConfig struct {
	Secure bool `env:"COOKIE_SECURE, default=false"`
}

type SuperAdminConfig struct {
	Email     string `env:"SUPER_ADMIN_EMAIL"`
	Password  string `env:"SUPER_ADMIN_PASS"`
	FirstName string `env:"SUPER_ADMIN_FIRST_NAME, default=Super"`
	LastName  string `env:"SUPER_ADMIN_LAST_NAME,  default=Admin"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=user_service"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type MailConfig struct {
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT,     default=587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	From         string        `env:"MAIL_FROM,     default=no-reply@localhost"`
	Workers      int           `env:"MAIL_WORKERS,  default=2"`
	QueueSize    int           `env:"MAIL_QUEUE_SIZE, default=64"`
	SendTimeout  time.Duration `env:"MAIL_SEND_TIMEOUT, default=10s"`
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// ValidateServe checks the settings the HTTP server cannot start without.
func (c *Config) ValidateServe() error {
	var errs []error
	if c.Security.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.Security.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.Security.ResetSecret == "" {
		errs = append(errs, errors.New("RESET_PASSWORD_SECRET is required"))
	}
	if c.Security.DefaultPassword == "" {
		errs = append(errs, errors.New("DEFAULT_USER_PASS is required"))
	}
	if c.Mail.Workers < 1 || c.Mail.QueueSize < 1 {
		errs = append(errs, errors.New("MAIL_WORKERS and MAIL_QUEUE_SIZE must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ValidateSeed checks the super admin settings used by the seed command.
func (c *Config) ValidateSeed() error {
	if c.SuperAdmin.Email == "" || c.SuperAdmin.Password == "" {
		return errors.New("config: SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASS are required")
	}
	return nil
}
