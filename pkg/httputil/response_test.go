package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	err := WriteJSON(w, http.StatusOK, map[string]string{"url": "https://example.com/sso/callback"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "https://example.com/sso/callback", body["url"])
}

func TestWriteErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		status  int
		message string
	}{
		{
			name:    "bad request",
			write:   func(w http.ResponseWriter) { WriteBadRequest(w, "missing required parameters") },
			status:  http.StatusBadRequest,
			message: "missing required parameters",
		},
		{
			name:    "unauthorized",
			write:   func(w http.ResponseWriter) { WriteUnauthorized(w, "invalid signature") },
			status:  http.StatusUnauthorized,
			message: "invalid signature",
		},
		{
			name:    "method not allowed",
			write:   func(w http.ResponseWriter) { WriteMethodNotAllowed(w, "method not allowed") },
			status:  http.StatusMethodNotAllowed,
			message: "method not allowed",
		},
		{
			name:    "service unavailable",
			write:   func(w http.ResponseWriter) { WriteServiceUnavailable(w, "hub sso not configured") },
			status:  http.StatusServiceUnavailable,
			message: "hub sso not configured",
		},
		{
			name:    "internal",
			write:   func(w http.ResponseWriter) { WriteInternalError(w, errors.New("boom")) },
			status:  http.StatusInternalServerError,
			message: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w))
		})
	}
}
