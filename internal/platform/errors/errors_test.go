package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    *Error
		typ    ErrorType
		status int
	}{
		{"validation", ValidationError("bad"), TypeValidation, http.StatusBadRequest},
		{"not found", NotFoundError("gone"), TypeNotFound, http.StatusNotFound},
		{"internal", InternalError("broke", cause), TypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.NotNil(t, tt.err.Context)
			assert.Contains(t, tt.err.Error(), string(tt.typ))
		})
	}
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := InternalError("failed to save lease", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal: failed to save lease: redis: connection refused", err.Error())
}

func TestWithField_Chains(t *testing.T) {
	err := ValidationError("text too long").WithField("slot_id", 3).WithField("max", 8)

	assert.Equal(t, map[string]any{"slot_id": 3, "max": 8}, err.Context)
}

func TestToResponse_JSON(t *testing.T) {
	body, err := json.Marshal(ValidationError("Invalid action").ToResponse())
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Invalid action","type":"validation"}`, string(body))

	body, err = json.Marshal(NotFoundError("unknown slot").WithField("slot_id", 99).ToResponse())
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"unknown slot","type":"not_found","context":{"slot_id":99}}`, string(body))
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	original := ValidationError("bad")
	wrapped := fmt.Errorf("handler: %w", original)
	assert.Same(t, original, AsStructuredError(wrapped))

	plain := errors.New("plain")
	got := AsStructuredError(plain)
	assert.Equal(t, TypeInternal, got.Type)
	assert.ErrorIs(t, got, plain)
}
