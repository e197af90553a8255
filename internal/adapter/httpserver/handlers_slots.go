package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gabrielkrapp/mosaic/internal/adapter/metrics"
	"github.com/gabrielkrapp/mosaic/internal/app"
	"github.com/gabrielkrapp/mosaic/internal/domain"
	apperrors "github.com/gabrielkrapp/mosaic/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const (
	actionPurchase = "purchase"
	actionInit     = "init"

	// migratedHeader lets a client that already ran its one-time migration
	// say so; init then only returns the current view.
	migratedHeader = "X-Mosaic-Migrated"
)

type slotsRequest struct {
	Action string             `json:"action"`
	Tile   *domain.Candidate  `json:"tile"`
	Tiles  []domain.Candidate `json:"tiles"` // nil when absent or null
}

type worldViewResponse struct {
	Slots     []domain.Slot `json:"slots"`
	Timestamp int64         `json:"timestamp"`
}

type purchaseResponse struct {
	Success bool          `json:"success"`
	Slots   []domain.Slot `json:"slots"`
}

type initResponse struct {
	Success   bool              `json:"success"`
	Slots     []domain.Slot     `json:"slots"`
	Migrated  int               `json:"migrated"`
	Conflicts []domain.Conflict `json:"conflicts,omitempty"`
}

func (s *Server) handleGetSlots(c echo.Context) error {
	view := s.app.WorldView(c.Request().Context())

	response := worldViewResponse{Slots: view, Timestamp: s.clock.Now().UnixMilli()}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handlePostSlots(c echo.Context) error {
	var req slotsRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	c.Set(metrics.ActionKey, req.Action)
	switch req.Action {
	case actionPurchase:
		return s.handlePurchase(c, req.Tile)
	case actionInit:
		if req.Tiles == nil {
			return apperrors.ValidationError("Invalid action").WithField("action", req.Action)
		}
		return s.handleInit(c, req.Tiles)
	default:
		c.Set(metrics.ActionKey, "invalid")
		return apperrors.ValidationError("Invalid action").WithField("action", req.Action)
	}
}

func (s *Server) handlePurchase(c echo.Context, tile *domain.Candidate) error {
	if tile == nil || tile.Text == "" || tile.ExpiresAt == nil {
		return apperrors.ValidationError("Missing required fields")
	}

	view, err := s.app.Purchase(c.Request().Context(), app.PurchaseRequest{
		SlotID:    tile.ID,
		Text:      tile.Text,
		Link:      tile.Link,
		ExpiresAt: *tile.ExpiresAt,
	})
	if err != nil {
		return leaseError(err, "failed to save lease").WithField("slot_id", tile.ID)
	}

	if err := c.JSON(http.StatusOK, purchaseResponse{Success: true, Slots: view}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleInit(c echo.Context, candidates []domain.Candidate) error {
	ctx := c.Request().Context()

	if c.Request().Header.Get(migratedHeader) == "true" {
		response := initResponse{Success: true, Slots: s.app.WorldView(ctx)}
		if err := c.JSON(http.StatusOK, response); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	result, err := s.app.Migrate(ctx, candidates)
	if err != nil {
		return apperrors.InternalError("failed to migrate leases", err).WithField("candidates", len(candidates))
	}

	response := initResponse{
		Success:   true,
		Slots:     result.Slots,
		Migrated:  result.Migrated,
		Conflicts: result.Conflicts,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleQuote(c echo.Context) error {
	idParam := c.Param("id")
	slotID, err := strconv.Atoi(idParam)
	if err != nil {
		return apperrors.ValidationError("invalid slot id").WithField("id", idParam)
	}

	days := 1
	if raw := c.QueryParam("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			return apperrors.ValidationError("invalid days").WithField("days", raw)
		}
	}

	quote, err := s.app.Quote(slotID, days)
	if errors.Is(err, domain.ErrUnknownSlot) {
		return apperrors.NotFoundError("slot not found").WithField("slot_id", slotID)
	}
	if err != nil {
		return leaseError(err, "failed to quote slot").WithField("slot_id", slotID)
	}

	if err := c.JSON(http.StatusOK, quote); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// leaseError maps app errors to the structured type. Anything not caused by
// the request itself is internal.
func leaseError(err error, internalMsg string) *apperrors.Error {
	switch {
	case errors.Is(err, domain.ErrUnknownSlot),
		errors.Is(err, domain.ErrInvalidLease),
		errors.Is(err, domain.ErrLeaseExpired):
		return apperrors.ValidationError(err.Error())
	default:
		return apperrors.InternalError(internalMsg, err)
	}
}
