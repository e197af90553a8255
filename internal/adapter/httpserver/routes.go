package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const maxBodySize = "1M"

var slotRoutePrefixes = []string{"/slots", "/api/slots"}

func (s *Server) registerRoutes() {
	s.echo.HTTPErrorHandler = s.handleHTTPError

	s.echo.Pre(middleware.RemoveTrailingSlash())
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.observability.HTTPMetrics != nil {
		s.echo.Use(s.observability.HTTPMetrics.Middleware())
	}
	s.echo.Use(middleware.BodyLimit(maxBodySize))
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	s.registerHealthRoutes()
	s.registerSlotRoutes()
}

func (s *Server) registerSlotRoutes() {
	// one limiter so both prefixes share a client's budget
	writeLimiter := newRateLimiter(s.config.WriteRatePerSecond, s.config.WriteRateBurst)

	for _, prefix := range slotRoutePrefixes {
		g := s.echo.Group(prefix)
		g.GET("", s.handleGetSlots)
		g.POST("", s.handlePostSlots, writeLimiter)
		g.GET("/:id/quote", s.handleQuote)
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
