package httpserver

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/layout"
	"github.com/gabrielkrapp/mosaic/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyInit = `{"action":"init","tiles":[]}`

// countingMigrator answers init with the base layout and counts calls.
func countingMigrator(calls *atomic.Int32) *mockAppService {
	return &mockAppService{
		migrateFn: func(context.Context, []domain.Candidate) (*domain.MigrationResult, error) {
			calls.Add(1)
			return &domain.MigrationResult{Slots: layout.Base()}, nil
		},
		quoteFn: func(slotID, days int) (pricing.Quote, error) {
			slot, _ := layout.Lookup(slotID)
			return pricing.NewQuote(slot, days, "ref"), nil
		},
	}
}

func postFrom(srv *Server, ip, body string) int {
	return doRequest(srv, http.MethodPost, "/slots", body, "X-Real-IP", ip).Code
}

func TestWriteLimit_BurstThenReject(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, countingMigrator(&calls), withWriteLimit(0.5, 2))

	assert.Equal(t, http.StatusOK, postFrom(srv, "203.0.113.7", emptyInit))
	assert.Equal(t, http.StatusOK, postFrom(srv, "203.0.113.7", emptyInit))

	rec := doRequest(srv, http.MethodPost, "/slots", emptyInit, "X-Real-IP", "203.0.113.7")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","type":"validation"}`, rec.Body.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestWriteLimit_IsPerClientIP(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, countingMigrator(&calls), withWriteLimit(0.01, 1))

	assert.Equal(t, http.StatusOK, postFrom(srv, "203.0.113.7", emptyInit))
	assert.Equal(t, http.StatusOK, postFrom(srv, "198.51.100.20", emptyInit))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(srv, "203.0.113.7", emptyInit))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWriteLimit_SharedAcrossRoutePrefixes(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, countingMigrator(&calls), withWriteLimit(0.01, 1))

	first := doRequest(srv, http.MethodPost, "/slots", emptyInit)
	second := doRequest(srv, http.MethodPost, "/api/slots", emptyInit)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestWriteLimit_InvalidRequestsSpendBudget(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, countingMigrator(&calls), withWriteLimit(0.01, 1))

	assert.Equal(t, http.StatusBadRequest, postFrom(srv, "203.0.113.7", `{"action":"nope"}`))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(srv, "203.0.113.7", emptyInit))
	assert.Zero(t, calls.Load())
}

func TestWriteLimit_ReadsAndQuotesUnlimited(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, countingMigrator(&calls), withWriteLimit(0.01, 1))

	require.Equal(t, http.StatusOK, doRequest(srv, http.MethodPost, "/slots", emptyInit).Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(srv, http.MethodPost, "/slots", emptyInit).Code)

	for range 5 {
		assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/slots", "").Code)
		assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/api/slots/6/quote?days=3", "").Code)
	}
}
