package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestHTTPHandler_Register(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		users := new(mockUsers)
		users.On("Register", mock.Anything, "a@x.com", "password1", "password1").Return(user.User{ID: 1}, nil)
		h := NewHTTPHandler(NewService(testSecret, time.Minute, users), users, false)

		w := postJSON(t, h.Register, "/auth/register", map[string]string{
			"email": " a@x.com ", "password": "password1", "confirmPassword": "password1",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"User registered successfully"}`, w.Body.String())
	})

	t.Run("mismatch", func(t *testing.T) {
		users := new(mockUsers)
		users.On("Register", mock.Anything, "a@x.com", "password1", "password2").
			Return(user.User{}, apperr.Validation("Passwords do not match"))
		h := NewHTTPHandler(NewService(testSecret, time.Minute, users), users, false)

		w := postJSON(t, h.Register, "/auth/register", map[string]string{
			"email": "a@x.com", "password": "password1", "confirmPassword": "password2",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Passwords do not match")
	})

	t.Run("invalid email", func(t *testing.T) {
		users := new(mockUsers)
		h := NewHTTPHandler(NewService(testSecret, time.Minute, users), users, false)

		w := postJSON(t, h.Register, "/auth/register", map[string]string{
			"email": "not-an-email", "password": "password1", "confirmPassword": "password1",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHTTPHandler_Login(t *testing.T) {
	t.Run("sets cookie", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByEmail", mock.Anything, "a@x.com").Return(storedUser(t), nil)
		svc := NewService(testSecret, 15*time.Minute, users)
		h := NewHTTPHandler(svc, users, true)

		w := postJSON(t, h.Login, "/auth/login", map[string]string{"email": "a@x.com", "password": "password1"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Successfully logged in"}`, w.Body.String())

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, httpx.AccessTokenCookie, c.Name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, 900, c.MaxAge)

		u, err := svc.Authenticate(context.Background(), c.Value)
		require.NoError(t, err)
		assert.Equal(t, int64(42), u.ID)
	})

	t.Run("padded email", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByEmail", mock.Anything, "a@x.com").Return(storedUser(t), nil)
		h := NewHTTPHandler(NewService(testSecret, time.Minute, users), users, false)

		w := postJSON(t, h.Login, "/auth/login", map[string]string{"email": "  a@x.com ", "password": "password1"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, w.Result().Cookies(), 1)
		users.AssertExpectations(t)
	})

	t.Run("bad credentials", func(t *testing.T) {
		users := new(mockUsers)
		users.On("GetByEmail", mock.Anything, "a@x.com").Return(storedUser(t), nil)
		h := NewHTTPHandler(NewService(testSecret, time.Minute, users), users, false)

		w := postJSON(t, h.Login, "/auth/login", map[string]string{"email": "a@x.com", "password": "wrongpass1"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
		assert.Empty(t, w.Result().Cookies())
	})
}
