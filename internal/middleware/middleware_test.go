package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/corprag/leadgate/internal/requestinfo"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestSecurity_Development(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rec.Header()
	if h.Get("X-Frame-Options") != "DENY" || h.Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("base headers missing: %v", h)
	}
	if h.Get("Referrer-Policy") != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q", h.Get("Referrer-Policy"))
	}
	if h.Get("Permissions-Policy") != "camera=(), microphone=(), geolocation=()" {
		t.Errorf("Permissions-Policy = %q", h.Get("Permissions-Policy"))
	}
	if h.Get("Content-Security-Policy") != "" || h.Get("Strict-Transport-Security") != "" {
		t.Error("CSP/HSTS must be production-only")
	}
}

func TestSecurity_Production(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Content-Security-Policy"); got != csp {
		t.Errorf("CSP = %q", got)
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing in production")
	}
}

func TestSecurity_HandlerOverrides(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
	})
	rec := httptest.NewRecorder()
	Security(false)(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Error("handler value should win")
	}
}

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name     string
		enabled  bool
		host     string
		proto    string
		tls      bool
		redirect bool
	}{
		{"disabled", false, "corprag.ru", "", false, false},
		{"plain_http", true, "corprag.ru", "", false, true},
		{"proxy_https", true, "corprag.ru", "https", false, false},
		{"direct_tls", true, "corprag.ru", "", true, false},
		{"localhost", true, "localhost:8080", "", false, false},
		{"loopback", true, "127.0.0.1:8080", "", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/leads?x=1", nil)
			r.Host = tc.host
			if tc.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			if tc.tls {
				r.TLS = &tls.ConnectionState{}
			}
			rec := httptest.NewRecorder()
			ForceHTTPS(tc.enabled)(ok).ServeHTTP(rec, r)

			if tc.redirect {
				if rec.Code != http.StatusPermanentRedirect {
					t.Fatalf("status = %d, want 308", rec.Code)
				}
				if loc := rec.Header().Get("Location"); loc != "https://corprag.ru/api/leads?x=1" {
					t.Errorf("Location = %q", loc)
				}
				return
			}
			if rec.Code != http.StatusTeapot {
				t.Errorf("status = %d, want pass-through", rec.Code)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := requestinfo.Enrich(RequestLogger(zap.New(core).Sugar())(ok))

	r := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["status"] != int64(http.StatusTeapot) {
		t.Errorf("status field = %v", ctx["status"])
	}
	if ctx["request_id"] != rec.Header().Get("X-Request-ID") {
		t.Errorf("request_id = %v", ctx["request_id"])
	}
	if ctx["ip_hash"] != requestinfo.HashIP("198.51.100.9") {
		t.Errorf("ip_hash = %v", ctx["ip_hash"])
	}
	for k, v := range ctx {
		if v == "198.51.100.9" {
			t.Errorf("raw IP logged under %s", k)
		}
	}
}
