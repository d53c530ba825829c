// internal/leads/handler.go
//
// Lead submission endpoint.
//
/*
Context
--------
The landing page fetches a CSRF token from `GET /api/leads/csrf` and then
posts one JSON object to `POST /api/leads`.  Submit runs a fixed gate chain
and stops at the first gate that rejects:

  1. origin          → 403 FORBIDDEN_ORIGIN
  2. rate limit      → 429 RATE_LIMITED + Retry-After
  3. body size       → 400 INVALID_PAYLOAD
  4. JSON syntax     → 400 INVALID_PAYLOAD
  5. JSON object     → 400 INVALID_PAYLOAD
  6. field allow-list→ 400 UNEXPECTED_FIELDS
  7. validation      → 422 VALIDATION_ERROR + fields
  8. honeypot        → 200 ok, nothing delivered
  9. CSRF            → 403 CSRF_MISMATCH
 10. delivery setup  → 503 TELEGRAM_NOT_CONFIGURED
 11. delivery        → 502 TELEGRAM_UNAVAILABLE
 12. accepted        → 200 ok + requestId

Instrumentation
---------------
Every exit logs one event carrying request_id and ip_hash, and bumps
leadgate_lead_submissions_total{outcome}.  Raw IPs, names, emails, and
phones are never logged.

Notes
-----
  • A limiter backend error lets the request through and logs at ERROR.
  • Oxford commas, two spaces after periods.
*/
package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/corprag/leadgate/internal/form"
	"github.com/corprag/leadgate/internal/guard"
	"github.com/corprag/leadgate/internal/metrics"
	"github.com/corprag/leadgate/internal/ratelimit"
	"github.com/corprag/leadgate/internal/requestinfo"
	"github.com/corprag/leadgate/internal/telegram"
)

// DefaultMaxBodyBytes caps the raw request body.
const DefaultMaxBodyBytes = 10000

/*──────────────────────────── collaborators ────────────────────────────────*/

// Limiter is satisfied by *ratelimit.Limiter.
type Limiter interface {
	Check(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Sender is satisfied by *telegram.Client.
type Sender interface {
	Configured() bool
	Send(ctx context.Context, text string) telegram.Result
}

// Options holds the endpoint's tunables.
type Options struct {
	AllowedOrigins []string // extra trusted origins besides the site itself
	MaxBodyBytes   int64    // <= 0 selects DefaultMaxBodyBytes
	SecureCookie   bool     // set Secure on the CSRF cookie (production)
}

// Handler serves the lead routes.  Build it with NewHandler.
type Handler struct {
	log     *zap.SugaredLogger
	limiter Limiter
	sender  Sender
	origins []string
	maxBody int64
	secure  bool

	now      func() time.Time
	newToken func() (string, error)
}

// NewHandler wires the endpoint.  log may be nil, in which case the global
// zap logger is used.
func NewHandler(log *zap.SugaredLogger, limiter Limiter, sender Sender, opts Options) *Handler {
	if log == nil {
		log = zap.S()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Handler{
		log:      log,
		limiter:  limiter,
		sender:   sender,
		origins:  opts.AllowedOrigins,
		maxBody:  maxBody,
		secure:   opts.SecureCookie,
		now:      time.Now,
		newToken: guard.GenerateCSRFToken,
	}
}

// Routes mounts the lead endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/leads/csrf", h.recovering(h.IssueCSRF))
	r.Post("/api/leads", h.recovering(h.Submit))
	r.Get("/api/leads", h.MethodNotAllowed)
}

/*──────────────────────────── GET /api/leads/csrf ──────────────────────────*/

// IssueCSRF hands out a fresh token in the body and the http-only cookie.
func (h *Handler) IssueCSRF(w http.ResponseWriter, r *http.Request) {
	info := requestinfo.Get(r)

	token, err := h.newToken()
	if err != nil {
		h.log.Errorw("csrf_generate_failed",
			"request_id", info.RequestID,
			"ip_hash", info.IPHash,
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, CodeInternalError, msgInternal, nil)
		return
	}

	guard.SetCSRFCookie(w, token, h.secure)
	w.Header().Set("Cache-Control", "no-store")
	metrics.CSRFTokensIssued.Inc()
	writeJSON(w, http.StatusOK, successEnvelope{OK: true, CSRFToken: token})
}

/*──────────────────────────── GET /api/leads ───────────────────────────────*/

// MethodNotAllowed answers reads of the submission URL.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, CodeInvalidPayload, msgUsePOST, nil)
}

/*──────────────────────────── POST /api/leads ──────────────────────────────*/

// Submit runs the gate chain described at the top of this file.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	info := requestinfo.Get(r)
	log := h.log.With("request_id", info.RequestID, "ip_hash", info.IPHash)

	// 1. Origin.
	if !guard.TrustedOrigin(r, h.origins) {
		log.Warnw("blocked_untrusted_origin")
		h.reject(w, metrics.OutcomeForbiddenOrigin, http.StatusForbidden, CodeForbiddenOrigin, msgForbiddenOrigin, nil)
		return
	}

	// 2. Rate limit, keyed by hashed IP.
	d, err := h.limiter.Check(r.Context(), "lead:"+info.IPHash)
	switch {
	case err != nil:
		log.Errorw("rate_limit_backend_error", "err", err)
	case !d.Allowed:
		metrics.RateLimitDenied.Inc()
		log.Warnw("rate_limited", "retry_after_seconds", d.RetryAfterSeconds)
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds))
		h.reject(w, metrics.OutcomeRateLimited, http.StatusTooManyRequests, CodeRateLimited, msgRateLimited, nil)
		return
	}

	cookieToken := guard.CSRFCookie(r)

	// 3–5. Body, JSON, object.
	payload, msg := h.readPayload(r)
	if msg != "" {
		log.Infow("invalid_payload", "reason", msg)
		h.reject(w, metrics.OutcomeInvalidPayload, http.StatusBadRequest, CodeInvalidPayload, msg, nil)
		return
	}

	// 6. Allow-list.
	if extra := form.UnexpectedFields(payload); len(extra) > 0 {
		log.Warnw("unexpected_fields", "unexpected_count", len(extra))
		h.reject(w, metrics.OutcomeUnexpectedFields, http.StatusBadRequest, CodeUnexpectedFields, msgUnexpectedFields, nil)
		return
	}

	// 7–8. Validation and honeypot.
	res := form.Validate(payload)
	if !res.OK {
		if isHoneypotOnly(res.Errors) {
			log.Infow("honeypot_tripped")
			metrics.LeadSubmissions.WithLabelValues(metrics.OutcomeHoneypot).Inc()
			writeJSON(w, http.StatusOK, successEnvelope{OK: true, RequestID: info.RequestID})
			return
		}
		fields := res.Errors
		delete(fields, form.FieldWebsite)
		log.Warnw("validation_error", "field_count", len(fields))
		h.reject(w, metrics.OutcomeValidationError, http.StatusUnprocessableEntity, CodeValidationError, msgValidation, fields)
		return
	}
	lead := res.Data

	// 9. CSRF double submit.
	if !guard.VerifyCSRFToken(lead.CSRFToken, cookieToken) {
		log.Warnw("csrf_mismatch")
		h.reject(w, metrics.OutcomeCSRFMismatch, http.StatusForbidden, CodeCSRFMismatch, msgCSRFMismatch, nil)
		return
	}

	// 10. Delivery configured.
	if !h.sender.Configured() {
		log.Errorw("telegram_not_configured")
		h.reject(w, metrics.OutcomeNotConfigured, http.StatusServiceUnavailable, CodeTelegramNotConfigured, msgNotConfigured, nil)
		return
	}

	// 11. Delivery.
	sent := h.sender.Send(r.Context(), telegram.LeadMessage(info.RequestID, *lead, h.now()))
	if !sent.OK {
		log.Errorw("telegram_send_failed",
			"attempts", sent.Attempts,
			"status_code", sent.StatusCode,
			"reason", sent.Error,
			"description", sent.Description,
		)
		h.reject(w, metrics.OutcomeDeliveryFailed, http.StatusBadGateway, CodeTelegramUnavailable, msgUnavailable, nil)
		return
	}

	// 12. Accepted.
	log.Infow("accepted",
		"intent", string(lead.Intent),
		"has_comment", lead.Comment != "",
		"comment_length", utf8.RuneCountInString(lead.Comment),
		"attempts", sent.Attempts,
		"country", info.Country,
		"device", info.UA.Device,
		"bot", info.UA.IsBot,
	)
	metrics.LeadSubmissions.WithLabelValues(metrics.OutcomeAccepted).Inc()
	writeJSON(w, http.StatusOK, successEnvelope{OK: true, RequestID: info.RequestID})
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// readPayload returns the decoded object, or a user-facing message naming
// why the body was refused.
func (h *Handler) readPayload(r *http.Request) (map[string]any, string) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		return nil, msgUnreadableBody
	}
	if len(raw) == 0 || int64(len(raw)) > h.maxBody {
		return nil, msgBadSize
	}
	if !json.Valid(raw) {
		return nil, msgBadJSON
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, msgBadJSON
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, msgNotObject
	}
	return obj, ""
}

func isHoneypotOnly(errs form.FieldErrors) bool {
	_, ok := errs[form.FieldWebsite]
	return ok && len(errs) == 1
}

func (h *Handler) reject(w http.ResponseWriter, outcome string, status int, code Code, msg string, fields form.FieldErrors) {
	metrics.LeadSubmissions.WithLabelValues(outcome).Inc()
	writeError(w, status, code, msg, fields)
}

// recovering turns a panic inside fn into a 500 INTERNAL_ERROR envelope.
func (h *Handler) recovering(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				info := requestinfo.Get(r)
				h.log.Errorw("handler_panic",
					"request_id", info.RequestID,
					"ip_hash", info.IPHash,
					"panic", rec,
				)
				h.reject(w, metrics.OutcomeInternalError, http.StatusInternalServerError, CodeInternalError, msgInternal, nil)
			}
		}()
		fn(w, r)
	}
}
