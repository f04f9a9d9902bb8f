package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	// SessionCookieName carries the session token.
	SessionCookieName = "auth-token"
	// DefaultCookieMaxAge deliberately outlives the token; token expiry governs.
	DefaultCookieMaxAge = 7 * 24 * time.Hour
)

// CookieStore writes and reads the session cookie.
type CookieStore struct {
	Secure bool
	MaxAge time.Duration
}

// NewCookieStore returns a store; secure should be true in production.
func NewCookieStore(secure bool, maxAge time.Duration) *CookieStore {
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	return &CookieStore{Secure: secure, MaxAge: maxAge}
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// SetSessionCookie stores token in the response.
func (s *CookieStore) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.cookie(token, int(s.MaxAge/time.Second)))
}

// ClearSessionCookie blanks the cookie with Max-Age=0 and then sends an
// expired deletion cookie, since clients differ in which one they honour.
func (s *CookieStore) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1))

	del := s.cookie("", 0)
	del.Expires = time.Unix(0, 0)
	http.SetCookie(w, del)
}

// ReadSessionToken prefers an Authorization bearer header over the cookie.
func ReadSessionToken(r *http.Request) (string, bool) {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if tok := strings.TrimSpace(parts[1]); tok != "" {
				return tok, true
			}
		}
	}
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
