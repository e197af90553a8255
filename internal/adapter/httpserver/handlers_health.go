package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second
)

const (
	statusReady     = "ready"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthCheck tests one dependency. A failing Degradable check leaves the
// service able to answer GET /slots with the base layout, so readiness reports
// it as degraded rather than taking the instance out of rotation.
type HealthCheck struct {
	Name       string
	Check      func(ctx context.Context) error
	Degradable bool
}

type healthReport struct {
	Status string `json:"status"`
	// Writes is false whenever any check fails; purchases and init would 500.
	Writes bool              `json:"writes"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (r healthReport) httpStatus() int {
	if r.Status == statusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

type livenessResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	if s.observability.MetricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.observability.MetricsHandler))
	}
}

// handleStartup passes only once every dependency answers; a store that is
// down at boot is never reported as degraded.
func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupCheckTimeout)
	defer cancel()

	return s.writeHealth(c, s.checkHealth(ctx, false))
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := livenessResponse{Status: "ok", Uptime: s.clock.Since(s.startTime).Seconds()}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
	defer cancel()

	return s.writeHealth(c, s.checkHealth(ctx, true))
}

// checkHealth runs every check. With allowDegraded, failures of Degradable
// checks downgrade the status to degraded instead of unhealthy.
func (s *Server) checkHealth(ctx context.Context, allowDegraded bool) healthReport {
	report := healthReport{Status: statusReady, Writes: true}
	if len(s.healthChecks) > 0 {
		report.Checks = make(map[string]string, len(s.healthChecks))
	}

	for _, hc := range s.healthChecks {
		err := hc.Check(ctx)
		if err == nil {
			report.Checks[hc.Name] = "ok"
			continue
		}

		report.Checks[hc.Name] = err.Error()
		report.Writes = false
		switch {
		case !hc.Degradable || !allowDegraded:
			report.Status = statusUnhealthy
		case report.Status == statusReady:
			report.Status = statusDegraded
		}
	}
	return report
}

func (s *Server) writeHealth(c echo.Context, report healthReport) error {
	if err := c.JSON(report.httpStatus(), report); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
