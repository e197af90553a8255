package httpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/app"
	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/layout"
	"github.com/gabrielkrapp/mosaic/internal/platform/config"
	"github.com/gabrielkrapp/mosaic/internal/pricing"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// --- Mock implementations ---

type mockAppService struct {
	worldViewFn func(ctx context.Context) []domain.Slot
	purchaseFn  func(ctx context.Context, req app.PurchaseRequest) ([]domain.Slot, error)
	migrateFn   func(ctx context.Context, candidates []domain.Candidate) (*domain.MigrationResult, error)
	quoteFn     func(slotID, days int) (pricing.Quote, error)
}

func (m *mockAppService) WorldView(ctx context.Context) []domain.Slot {
	if m.worldViewFn != nil {
		return m.worldViewFn(ctx)
	}
	return layout.Base()
}

func (m *mockAppService) Purchase(ctx context.Context, req app.PurchaseRequest) ([]domain.Slot, error) {
	if m.purchaseFn != nil {
		return m.purchaseFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Migrate(ctx context.Context, candidates []domain.Candidate) (*domain.MigrationResult, error) {
	if m.migrateFn != nil {
		return m.migrateFn(ctx, candidates)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Quote(slotID, days int) (pricing.Quote, error) {
	if m.quoteFn != nil {
		return m.quoteFn(slotID, days)
	}
	return pricing.Quote{}, errors.New("not implemented")
}

// --- Test helpers ---

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	clock := clockwork.NewFakeClockAt(testNow)
	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			Port:               "0",
			WriteRatePerSecond: 100,
			WriteRateBurst:     100,
		},
		app:       app,
		clock:     clock,
		startTime: clock.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withObservability(obs Observability) func(*Server) {
	return func(s *Server) {
		s.observability = obs
	}
}

func withWriteLimit(ratePerSecond float64, burst int) func(*Server) {
	return func(s *Server) {
		s.config.WriteRatePerSecond = ratePerSecond
		s.config.WriteRateBurst = burst
	}
}
