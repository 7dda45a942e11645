package auth

import (
	"net/http"
	"time"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// setSessionCookies binds the token pair to the client. Both cookies are
// http-only and secure; each lives exactly as long as its token.
func setSessionCookies(w http.ResponseWriter, pair TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, sessionCookie(accessCookieName, pair.AccessToken, int(accessTTL.Seconds())))
	http.SetCookie(w, sessionCookie(refreshCookieName, pair.RefreshToken, int(refreshTTL.Seconds())))
}

func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(accessCookieName, "", -1))
	http.SetCookie(w, sessionCookie(refreshCookieName, "", -1))
}

func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
