// internal/guard/csrf.go
//
// Leadgate – request guard: double-submit CSRF tokens.
//
// Context
//   The form fetches a token from GET /api/leads/csrf.  The server returns it
//   in the JSON body and also sets it as an http-only cookie.  On submit the
//   page echoes the body copy in the payload and the browser sends the
//   cookie copy automatically.  A cross-site page can trigger the cookie but
//   cannot read it, so it cannot produce a matching payload value.
//
//      token = hex( 32 random bytes )   → 64 chars
//
// Workflow
//   •  GenerateCSRFToken()            → new token for the issuing endpoint.
//   •  SetCSRFCookie(w, tok, secure)  → cookie with 30 minute lifetime.
//   •  VerifyCSRFToken(form, cookie)  → constant-time compare; false on any
//                                       mismatch, including a missing cookie.
//
//------------------------------------------------------------------------------

package guard

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

const (
	// CSRFCookieName is shared with the front-end fetch helper.
	CSRFCookieName = "corprag-csrf"

	// CSRFTokenTTL is the cookie lifetime.
	CSRFTokenTTL = 30 * time.Minute

	csrfTokenBytes = 32
)

// randRead is swapped in tests to simulate an entropy failure.
var randRead = rand.Read

// GenerateCSRFToken returns 32 random bytes, hex encoded.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := randRead(buf); err != nil {
		return "", fmt.Errorf("csrf token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// VerifyCSRFToken reports whether the payload token equals the cookie token.
// Tokens of different length are rejected before the constant-time compare.
func VerifyCSRFToken(formToken, cookieToken string) bool {
	if formToken == "" || cookieToken == "" || len(formToken) != len(cookieToken) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(formToken), []byte(cookieToken)) == 1
}

// SetCSRFCookie writes the token cookie.  secure is true in production.
func SetCSRFCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(CSRFTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// CSRFCookie returns the token cookie value, or "" when absent.
func CSRFCookie(r *http.Request) string {
	c, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
