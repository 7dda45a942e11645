package auth

import (
	"net/http"
	"strings"

	"streamhub-api/internal/httpx"
)

// Middleware guards a handler with the access token, taken from the
// accessToken cookie or an Authorization bearer header. The resolved user id
// lands in the request context.
func Middleware(issuer *Issuer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := accessTokenFromRequest(r)
		if tokenStr == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "missing authentication token")
			return
		}

		userID, err := issuer.VerifyAccess(tokenStr)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
