// Package guard holds the request checks that run before a lead payload is
// even parsed: origin verification and CSRF token handling.  Rate limiting
// lives in internal/ratelimit, IP hashing in internal/requestinfo.
package guard

import (
	"net/http"
	"strings"
)

// TrustedOrigin reports whether the Origin header names this site or one of
// the operator-configured extra origins.  The expected origin is rebuilt
// from X-Forwarded-Proto (default https) and X-Forwarded-Host (else Host).
// A missing Origin or host fails closed.
func TrustedOrigin(r *http.Request, allowList []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return false
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	if origin == proto+"://"+host {
		return true
	}

	for _, o := range allowList {
		if o == origin {
			return true
		}
	}
	return false
}

// ParseOrigins splits a comma-separated list, trimming blanks.
func ParseOrigins(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
