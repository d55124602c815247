package httpx

import (
	"errors"
	"net/http"
	"runtime/debug"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/platform/logging"

	"github.com/go-chi/chi/v5/middleware"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope unless the
// response has already started. It must run inside AccessLogMiddleware so the
// wrapped writer reports whether headers went out.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logging.FromContext(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if ww, ok := w.(middleware.WrapResponseWriter); ok && ww.Status() != 0 {
				return
			}
			JSONError(w, r, http.StatusInternalServerError, apperr.KindInternal.String(), "Internal server error", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
