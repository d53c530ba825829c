// internal/routing/router_test.go
//
// Unit-tests for the root router.
//
// Context
// -------
// The router is assembled from middleware that each have their own tests.
// These tests only prove the wiring:
//
//   • mounted routes are reachable and carry X-Request-ID   → 200
//   • /healthz answers without any mount                    → 200
//   • unknown paths answer in the JSON envelope             → 404
//   • production adds the CSP header                        → header present
//
// Run: go test ./internal/routing -v

package routing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type pingMount struct{}

func (pingMount) Routes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func newRouter(prod bool) http.Handler {
	return New(Options{
		Log:        zap.NewNop().Sugar(),
		Production: prod,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}, pingMount{})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_MountedRoute(t *testing.T) {
	rec := get(newRouter(false), "/api/ping")
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing; Enrich not installed")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("Content-Security-Policy") != "" {
		t.Error("CSP must be off outside production")
	}
}

func TestRouter_Healthz(t *testing.T) {
	rec := get(newRouter(false), "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	rec := get(newRouter(false), "/metrics")
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_NotFound(t *testing.T) {
	rec := get(newRouter(false), "/wp-login.php")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"ok":false`) {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_ProductionCSP(t *testing.T) {
	rec := get(newRouter(true), "/healthz")
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("CSP missing in production")
	}
}
