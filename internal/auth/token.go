package auth

import (
	"net/http"
	"strings"
)

// AdminCookie carries the operator token for browser sessions.
const AdminCookie = "admin_token"

// ExtractAccessToken returns the bearer token from the Authorization header,
// falling back to the named cookie. It returns "" when neither is present.
func ExtractAccessToken(r *http.Request, cookieName string) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); tok != "" {
			return tok
		}
	}

	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
