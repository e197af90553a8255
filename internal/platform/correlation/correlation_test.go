package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		id := NewID()
		assert.Len(t, id, 8)
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestFromInbound(t *testing.T) {
	assert.Equal(t, "req-42_A", FromInbound("req-42_A"))

	for _, bad := range []string{"", "has space", "semi;colon", "new\nline", strings.Repeat("a", 65)} {
		got := FromInbound(bad)
		assert.NotEqual(t, bad, got)
		assert.Len(t, got, 8)
	}
}

func TestWithID_RoundTrip(t *testing.T) {
	id, ok := ID(WithID(context.Background(), "abc12345"))
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)

	_, ok = ID(context.Background())
	assert.False(t, ok)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)
}

func TestHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(WithID(context.Background(), "cafe0001"), "with id")
	assert.Contains(t, buf.String(), "correlation_id=cafe0001")

	buf.Reset()
	logger.Info("without id")
	assert.NotContains(t, buf.String(), "correlation_id")
}

func TestHandler_PreservesAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).With("component", "lease").WithGroup("req")

	logger.InfoContext(WithID(context.Background(), "cafe0002"), "msg", "slot_id", 1)

	out := buf.String()
	assert.Contains(t, out, "component=lease")
	assert.Contains(t, out, "req.slot_id=1")
	assert.Contains(t, out, "cafe0002")
}
