package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handler "github.com/voyagio/payment-service/internal/adapter/handler/http"
	"github.com/voyagio/payment-service/internal/breaker"
	"github.com/voyagio/payment-service/internal/config"
	"github.com/voyagio/payment-service/internal/logging"
)

// Server wraps the echo HTTP server with its routes and middleware.
type Server struct {
	echo   *echo.Echo
	cfg    config.HTTPConfig
	logger *zap.Logger
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(
	cfg config.HTTPConfig,
	payments *handler.PaymentHandler,
	webhooks *handler.WebhookHandler,
	breakers *breaker.Registry,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logging.NewEchoRequestLogger(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"circuits": breakers.States(),
		})
	})

	api := e.Group("/api/v1")
	payments.Register(api)

	// Gateways call back at the root path, outside the versioned API.
	webhooks.Register(e.Group(""))

	return &Server{echo: e, cfg: cfg, logger: logger}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("http server listening", zap.String("addr", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
