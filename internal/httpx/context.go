package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "requestID"
)

// CurrentUser is the authenticated caller stored by CookieAuth.
type CurrentUser struct {
	ID    int64
	Email string
}

// UserFrom retrieves the authenticated user from the request context.
func UserFrom(r *http.Request) (CurrentUser, bool) {
	return UserFromContext(r.Context())
}

func UserFromContext(ctx context.Context) (CurrentUser, bool) {
	u, ok := ctx.Value(userKey).(CurrentUser)
	return u, ok
}

// ContextWithUser returns a new context carrying u.
func ContextWithUser(ctx context.Context, u CurrentUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// RequestIDFrom retrieves the request ID from the request context.
func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
