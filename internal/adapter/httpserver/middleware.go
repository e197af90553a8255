package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gabrielkrapp/mosaic/internal/platform/correlation"
	apperrors "github.com/gabrielkrapp/mosaic/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

// correlationMiddleware reuses the caller's X-Request-ID when it is usable and
// echoes the id back on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromInbound(c.Request().Header.Get(correlation.Header))
		c.Response().Header().Set(correlation.Header, id)

		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			return HandleError(c, err)
		}
	}
}

// handleHTTPError renders errors that bypass ErrorHandlingMiddleware (routing
// misses, body limit, panics recovered upstream) in the same JSON shape.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		structuredErr := WrapHTTPError(httpErr)
		logError(c, structuredErr)
		if err := c.JSON(httpErr.Code, structuredErr.ToResponse()); err != nil {
			slog.ErrorContext(c.Request().Context(), "Failed to write error response", "error", err)
		}
		return
	}

	if err := HandleError(c, err); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to write error response", "error", err)
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	structuredErr := apperrors.AsStructuredError(err)
	logError(c, structuredErr)
	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

// WrapHTTPError converts an echo error into the structured type. Statuses
// without a matching type keep their code when rendered by handleHTTPError.
func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}
	if message == "" {
		message = "internal server error"
	}

	var errType apperrors.ErrorType
	switch {
	case httpErr.Code == http.StatusNotFound || httpErr.Code == http.StatusMethodNotAllowed:
		errType = apperrors.TypeNotFound
	case httpErr.Code >= 400 && httpErr.Code < 500:
		errType = apperrors.TypeValidation
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}
