package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, 400},
		{ErrCodeConfiguration, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeQuotaExceeded, 429},
		{ErrCodeExternal, 500},
		{ErrCodeStore, 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(NewError(tt.code, "boom")), tt.code)
	}
	assert.Equal(t, 500, StatusFor(errors.New("plain")))
}

func TestStatusFor_Wrapped(t *testing.T) {
	inner := NewError(ErrCodeNotFound, "schedule missing")
	wrapped := fmt.Errorf("load schedule: %w", inner)
	assert.Equal(t, 404, StatusFor(wrapped))
}

func TestErrorResponse_Wrapped(t *testing.T) {
	inner := NewError(ErrCodeQuotaExceeded, "too many schedules")
	resp := ErrorResponse(fmt.Errorf("create trigger: %w", inner))
	require.Equal(t, 429, resp.StatusCode)
	assert.JSONEq(t, `{"error":"too many schedules","code":"QUOTA_EXCEEDED"}`, string(resp.Body))
}

func TestErrorResponse_InternalIsGeneric(t *testing.T) {
	resp := ErrorResponse(errors.New("db: connection refused on 10.0.0.3"))
	require.Equal(t, 500, resp.StatusCode)
	assert.JSONEq(t, `{"error":"internal error"}`, string(resp.Body))
}
