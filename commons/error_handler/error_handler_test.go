package error_handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCollection_GetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"not found", CodeNotFound, http.StatusNotFound},
		{"conflict", CodeConflict, http.StatusConflict},
		{"unavailable", CodeServiceUnavailable, http.StatusServiceUnavailable},
		{"internal", CodeInternalServerError, http.StatusInternalServerError},
		{"application code", 1001, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewErrorCollection().AddError(tt.code, "boom", nil)
			assert.True(t, ec.HasErrors())
			assert.Equal(t, tt.expected, ec.GetHTTPStatus())
		})
	}

	assert.Equal(t, http.StatusOK, NewErrorCollection().GetHTTPStatus())
}
