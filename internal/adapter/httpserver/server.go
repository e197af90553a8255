// Package httpserver is the HTTP boundary: the slot API, health checks,
// version and metrics.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/adapter/metrics"
	"github.com/gabrielkrapp/mosaic/internal/app"
	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/platform/config"
	"github.com/gabrielkrapp/mosaic/internal/pricing"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

type appService interface {
	WorldView(ctx context.Context) []domain.Slot
	Purchase(ctx context.Context, req app.PurchaseRequest) ([]domain.Slot, error)
	Migrate(ctx context.Context, candidates []domain.Candidate) (*domain.MigrationResult, error)
	Quote(slotID, days int) (pricing.Quote, error)
}

// Observability holds the optional metrics wiring. Zero value disables both.
type Observability struct {
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app           appService
	healthChecks  []HealthCheck
	observability Observability
	clock         clockwork.Clock
	startTime     time.Time
}

func NewServer(cfg *config.Config, app appService, healthChecks []HealthCheck, obs Observability) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := clockwork.NewRealClock()
	srv := &Server{
		echo:          e,
		config:        cfg,
		app:           app,
		healthChecks:  healthChecks,
		observability: obs,
		clock:         clock,
		startTime:     clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
