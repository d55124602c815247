package httpx

import (
	"context"
	"net/http"
	"strconv"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/platform/logging"
)

// AccessTokenCookie is the cookie carrying the signed access token.
const AccessTokenCookie = "access_token"

// Authenticator resolves an access token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (CurrentUser, error)
}

// CookieAuth rejects requests without a valid access_token cookie and stores the
// resolved user in the request context.
func CookieAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				JSONError(w, r, http.StatusUnauthorized, apperr.KindAuth.String(), "Token is missing in cookies", nil)
				return
			}

			u, err := auth.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := ContextWithUser(r.Context(), u)
			ctx = logging.WithFields(ctx, "user_id", strconv.FormatInt(u.ID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
