package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/platform/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ContextWithRequestID(r.Context(), "req-1"))
	details := []ErrorDetail{{Field: "email", Message: "email is required"}}

	JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "Invalid input", resp.Error.Message)
	assert.Equal(t, details, resp.Error.Details)
	assert.Equal(t, "req-1", resp.Meta["request_id"])
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", apperr.Validation("No valid fields to update"), 400, "VALIDATION_ERROR", "No valid fields to update"},
		{"invalid input", apperr.New(apperr.KindInvalidInput, "limit must be between 1 and 100"), 422, "UNPROCESSABLE_ENTITY", "limit must be between 1 and 100"},
		{"not found", apperr.NotFound("Book not found"), 404, "NOT_FOUND", "Book not found"},
		{"forbidden", apperr.Forbidden("You do not own this book"), 403, "FORBIDDEN", "You do not own this book"},
		{"auth", apperr.New(apperr.KindAuth, "Could not validate credentials"), 401, "UNAUTHORIZED", "Could not validate credentials"},
		{"integrity", apperr.Wrap(errors.New("dup"), apperr.KindIntegrity, "Integrity error"), 400, "INTEGRITY_ERROR", "Integrity error"},
		{"internal", errors.New("connection refused"), 500, "INTERNAL_ERROR", "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := logging.New(&logBuf, "debug", "json")
			r := httptest.NewRequest(http.MethodGet, "/books/search", nil)
			r = r.WithContext(logger.WithContext(r.Context()))
			w := httptest.NewRecorder()

			WriteError(w, r, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Equal(t, tc.message, resp.Error.Message)

			if tc.status == http.StatusInternalServerError {
				assert.Contains(t, logBuf.String(), "connection refused")
			} else {
				assert.Empty(t, logBuf.String())
			}
		})
	}
}

func TestMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Message(w, "Book deleted successfully")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Book deleted successfully"}`, w.Body.String())
}
