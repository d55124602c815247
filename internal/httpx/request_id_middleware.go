package httpx

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware assigns a request id and attaches a child of base
// carrying it to the request context.
func RequestIDMiddleware(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			w.Header().Set(requestIDHeader, requestID)
			logger := base.With().Str("request_id", requestID).Logger()
			ctx := logger.WithContext(ContextWithRequestID(r.Context(), requestID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
