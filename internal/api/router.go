package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/boilerplate/user-service/internal/api/docs"
	"github.com/boilerplate/user-service/internal/api/handler"
	"github.com/boilerplate/user-service/internal/api/middleware"
	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

// Dependencies are the collaborators the HTTP layer needs. They are built
// once at process start and injected here.
type Dependencies struct {
	Session  ports.SessionService
	Recovery ports.RecoveryService
	Tokens   ports.TokenIssuer
	Users    ports.UserRepository
	Cookie   handler.CookieConfig
	ResetTTL time.Duration
	Checks   map[string]handler.CheckFunc
	Logger   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// Request metrics go to a per-router registry; /metrics also exposes the
	// process-wide collectors registered through promauto.
	reg := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Operational endpoints (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- User routes ---
	guard := middleware.NewGuard(deps.Tokens, deps.Users, deps.Logger)
	admin := guard.Authorize(domain.AdminRoles...)
	anyRole := guard.Authorize()

	users := handler.NewUserHandler(deps.Session, deps.Recovery, deps.Cookie, deps.ResetTTL)
	g := e.Group("/api/v1/user")

	g.POST("/login", users.Login)
	g.POST("/logout", users.Logout)
	g.POST("/refresh-token", users.RefreshToken)
	g.POST("/registration", users.Registration, admin)

	g.POST("/password/reset", users.ResetPassword, anyRole)
	g.POST("/password/forget", users.ForgetPassword)
	g.POST("/password/set-new", users.SetNewPassword)

	g.GET("/profile/me", users.Profile, anyRole)
	g.PATCH("/:userId/update/active/status", users.ActiveStatusUpdate, admin)
	g.DELETE("/:userId/soft-delete", users.SoftDeleted, admin)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURIPath:   true,
		LogRequestID: true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= 500 {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Str("request_id", v.RequestID).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
