// internal/telegram/client.go
//
// Telegram Bot API delivery client.
//
// Context
// -------
// Accepted leads are pushed to a single chat through `sendMessage`.  The
// endpoint answers the visitor only after Telegram acknowledged the message,
// so Send is synchronous and bounded:
//
//   • up to three attempts,
//   • attempt n gets its own deadline of 5 s + n × 1 s,
//   • 300 ms × n of back-off between attempts.
//
// A response counts as delivered only when it is 2xx AND the JSON body
// carries `"ok": true`.  HTTP 408, 409, 425, 429, every 5xx, transport
// errors, timeouts, and unacknowledged 2xx responses are retried.  Any
// other status stops immediately.
//
// Notes
// -----
// • The bot token is part of the request URL.  Transport errors are unwrapped
//   from *url.Error before they become a reason string, so the token never
//   reaches the logs.
// • Cancelling the caller's context stops the loop between attempts.
// • Oxford commas, two spaces after periods.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/corprag/leadgate/internal/metrics"
)

// DefaultBaseURL is the public Bot API host.
const DefaultBaseURL = "https://api.telegram.org"

// Reason strings reported in Result.Error.
const (
	ReasonNotConfigured = "telegram_not_configured"
	ReasonTimeout       = "telegram_timeout"
	ReasonCanceled      = "telegram_canceled"
	ReasonNetwork       = "telegram_network_error"
	ReasonRequest       = "telegram_request_error"
)

const (
	maxAttempts        = 3
	defaultBaseTimeout = 5 * time.Second
	defaultTimeoutStep = time.Second
	defaultBackoffUnit = 300 * time.Millisecond
	maxResponseBytes   = 64 << 10
)

// Result describes one Send call.  StatusCode is the last HTTP status seen
// (0 when no response arrived).  Description carries Telegram's own error
// text when it sent one.
type Result struct {
	OK          bool
	Attempts    int
	StatusCode  int
	Error       string
	Description string
}

// Client is safe for concurrent use.
type Client struct {
	token  string
	chatID string

	baseURL     string
	http        *http.Client
	baseTimeout time.Duration
	timeoutStep time.Duration
	backoffUnit time.Duration
	log         *zap.SugaredLogger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another Bot API host (tests, proxies).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeouts sets the per-attempt deadline to base + attempt × step.
func WithTimeouts(base, step time.Duration) Option {
	return func(c *Client) { c.baseTimeout, c.timeoutStep = base, step }
}

// WithBackoff sets the pause after attempt n to n × unit.
func WithBackoff(unit time.Duration) Option { return func(c *Client) { c.backoffUnit = unit } }

// WithLogger injects the sugared logger used for per-attempt events.
func WithLogger(l *zap.SugaredLogger) Option { return func(c *Client) { c.log = l } }

// New returns a client for one bot and one chat.  Empty credentials are
// allowed; Send then reports ReasonNotConfigured without any network call.
func New(token, chatID string, opts ...Option) *Client {
	c := &Client{
		token:       token,
		chatID:      chatID,
		baseURL:     DefaultBaseURL,
		http:        &http.Client{},
		baseTimeout: defaultBaseTimeout,
		timeoutStep: defaultTimeoutStep,
		backoffUnit: defaultBackoffUnit,
		log:         zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether both the bot token and chat id are present.
func (c *Client) Configured() bool { return c.token != "" && c.chatID != "" }

/*──────────────────────────── wire types ───────────────────────────────────*/

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

/*──────────────────────────── send loop ────────────────────────────────────*/

// Send posts text (Telegram HTML) to the configured chat.
func (c *Client) Send(ctx context.Context, text string) Result {
	if !c.Configured() {
		return Result{Error: ReasonNotConfigured}
	}

	start := time.Now()
	defer func() { metrics.DeliveryDuration.Observe(time.Since(start).Seconds()) }()

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return Result{Error: ReasonRequest}
	}

	var res Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		out := c.attempt(ctx, attempt, body)
		if out.status != 0 {
			res.StatusCode = out.status
		}
		res.Description = out.description

		if out.reason == "" {
			metrics.DeliveryAttempts.WithLabelValues(metrics.AttemptOK).Inc()
			res.OK = true
			res.Error = ""
			return res
		}
		res.Error = out.reason

		if !out.retry {
			metrics.DeliveryAttempts.WithLabelValues(metrics.AttemptFatal).Inc()
			return res
		}
		metrics.DeliveryAttempts.WithLabelValues(metrics.AttemptRetryable).Inc()
		c.log.Warnw("telegram attempt failed",
			"attempt", attempt,
			"status_code", out.status,
			"reason", out.reason,
		)

		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*c.backoffUnit); err != nil {
			res.Error = ReasonCanceled
			return res
		}
	}
	return res
}

type attemptOutcome struct {
	status      int
	retry       bool
	reason      string // empty on success
	description string
}

func (c *Client) attempt(ctx context.Context, n int, body []byte) attemptOutcome {
	actx, cancel := context.WithTimeout(ctx, c.baseTimeout+time.Duration(n)*c.timeoutStep)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return attemptOutcome{reason: ReasonRequest}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportOutcome(ctx, actx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		out := transportOutcome(ctx, actx, err)
		out.status = resp.StatusCode
		return out
	}

	var ack apiResponse
	_ = json.Unmarshal(raw, &ack)

	out := attemptOutcome{status: resp.StatusCode, description: ack.Description}
	if isSuccess(resp.StatusCode) && ack.OK {
		return out
	}
	out.reason = fmt.Sprintf("telegram_http_%d", resp.StatusCode)
	out.retry = isSuccess(resp.StatusCode) || retryableStatus(resp.StatusCode)
	return out
}

func (c *Client) endpoint() string {
	return c.baseURL + "/bot" + c.token + "/sendMessage"
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// transportOutcome classifies an error from Do or a body read.
func transportOutcome(parent, attempt context.Context, err error) attemptOutcome {
	if parent.Err() != nil {
		return attemptOutcome{reason: ReasonCanceled}
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return attemptOutcome{reason: ReasonTimeout, retry: true}
		}
		err = ue.Err
	}
	if errors.Is(err, context.DeadlineExceeded) || attempt.Err() != nil {
		return attemptOutcome{reason: ReasonTimeout, retry: true}
	}
	return attemptOutcome{reason: ReasonNetwork, retry: true, description: err.Error()}
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
