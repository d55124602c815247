// Package testutil holds request and token helpers shared by HTTP tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"bookcatalog/internal/httpx"
	"bookcatalog/internal/platform/crypto"

	"github.com/golang-jwt/jwt/v5"
)

// TestSecret signs tokens in tests that wire the real auth service.
const TestSecret = "test-secret"

// AccessToken issues a token for email valid for one hour.
func AccessToken(secret, email string) string {
	token, _, _ := crypto.GenerateToken(secret, email, time.Hour)
	return token
}

// ExpiredAccessToken issues a correctly signed token that expired an hour ago.
func ExpiredAccessToken(secret, email string) string {
	c := crypto.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	return token
}

// NewRequest builds a request with body marshalled as JSON. A string body is
// sent verbatim.
func NewRequest(method, path string, body any) *http.Request {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}

	if payload == nil {
		return httptest.NewRequest(method, path, nil)
	}
	r := httptest.NewRequest(method, path, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// WithAccessToken attaches token as the access_token cookie.
func WithAccessToken(r *http.Request, token string) *http.Request {
	if token != "" {
		r.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: token})
	}
	return r
}

type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// ErrorMessage returns error.message from an error envelope, or "".
func (rr RecordResponse) ErrorMessage() string {
	e, _ := rr.Body["error"].(map[string]any)
	msg, _ := e["message"].(string)
	return msg
}

func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// Do serves r through h and records the result.
func Do(h http.Handler, r *http.Request) RecordResponse {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return RecordHTTPResponse(w)
}
