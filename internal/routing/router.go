// internal/routing/router.go
//
// Root chi router.
//
// Context
// -------
// The service exposes three groups of routes:
//
//   • /api/leads, /api/leads/csrf – the lead endpoint (internal/leads),
//   • /metrics                    – Prometheus scrape target,
//   • /healthz                    – liveness probe for the load balancer.
//
// Middleware order (outermost first):
//
//   1. chi Recoverer        – last line of defence against panics.
//   2. ForceHTTPS           – 308 to https when enabled.
//   3. Security headers     – CSP and HSTS only in production.
//   4. requestinfo.Enrich   – request id, IP hash, UA, country.
//   5. RequestLogger        – one line per request, no raw IPs.
//
// Notes
// -----
// • Unknown paths and methods answer in the same JSON envelope the page
//   already understands.
// • Oxford commas, two spaces after periods.

package routing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/corprag/leadgate/internal/middleware"
	"github.com/corprag/leadgate/internal/requestinfo"
)

// Mounter is implemented by *leads.Handler.
type Mounter interface {
	Routes(r chi.Router)
}

// Options configures New.
type Options struct {
	Log        *zap.SugaredLogger
	Production bool
	ForceHTTPS bool
	Metrics    http.Handler // nil selects promhttp.Handler()
}

// New builds the root handler and mounts every Mounter on it.
func New(opts Options, mounts ...Mounter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(opts.ForceHTTPS))
	r.Use(middleware.Security(opts.Production))
	r.Use(requestinfo.Enrich)
	r.Use(middleware.RequestLogger(opts.Log))

	for _, m := range mounts {
		m.Routes(r)
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
