// Package middleware contains the HTTP middleware of the parc-loc service.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sessionCookieName = "parcloc_session"
	sessionTTL        = 30 * 24 * time.Hour
)

// SessionMiddleware guards the API behind the shared operator session: a
// cookie carrying an HMAC-signed issue timestamp, set after a successful
// password login.
type SessionMiddleware struct {
	secretKey []byte
}

// NewSessionMiddleware creates a SessionMiddleware with the given secret.
// An empty secret falls back to a random per-process key, which invalidates
// sessions on restart.
func NewSessionMiddleware(secret string) *SessionMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("parcloc-default-key")
		}
	}

	return &SessionMiddleware{secretKey: key}
}

// Middleware rejects requests without a valid, unexpired session cookie.
func (s *SessionMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !s.validSession(cookie.Value, time.Now()) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie establishes the operator session.
func (s *SessionMiddleware) SetSessionCookie(w http.ResponseWriter) {
	now := time.Now()

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.sign(now.Unix()),
		Path:     "/",
		Expires:  now.Add(sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (s *SessionMiddleware) sign(issuedAt int64) string {
	mac := hmac.New(sha256.New, s.secretKey)
	ts := strconv.FormatInt(issuedAt, 10)
	mac.Write([]byte(ts))
	return ts + "." + hex.EncodeToString(mac.Sum(nil))
}

func (s *SessionMiddleware) validSession(value string, now time.Time) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 2 {
		return false
	}

	issuedAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return false
	}

	expected := s.sign(issuedAt)
	expectedParts := strings.Split(expected, ".")
	if !hmac.Equal([]byte(parts[1]), []byte(expectedParts[1])) {
		return false
	}

	issued := time.Unix(issuedAt, 0)
	if issued.After(now) || now.Sub(issued) > sessionTTL {
		return false
	}

	return true
}
