package securecore

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/readleaf/securecore/internal/hostmatch"
)

// Client is the secure request client. It builds fully-qualified URLs,
// attaches security and context headers from its Session, enforces HTTPS,
// selects a pinned or standard transport per the resolver's decision, bounds
// every request with a deadline, and normalizes responses into a decoded
// payload or a typed error.
//
// The client performs no retries; retry policy belongs to callers.
type Client struct {
	cfg      Config
	session  *Session
	resolver *PinResolver
	logger   *slog.Logger
	standard *http.Client
	pinned   *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRootCAs adds trust roots beyond the system pool, for backends served
// under a private CA. The pin check still applies on the pinned path.
func WithRootCAs(pool *x509.CertPool) ClientOption {
	return func(c *Client) {
		c.standard = newStandardClient(pool)
		c.pinned = newPinnedClient(c.resolver, pool)
	}
}

// WithHTTPClients overrides both underlying HTTP clients. Intended for tests.
func WithHTTPClients(standard, pinned *http.Client) ClientOption {
	return func(c *Client) {
		if standard != nil {
			c.standard = standard
		}
		if pinned != nil {
			c.pinned = pinned
		}
	}
}

// NewClient creates a secure request client. The session and resolver are
// injected so callers (and tests) control their lifecycle; pass a fresh
// Session from NewSession when in doubt.
func NewClient(cfg Config, session *Session, resolver *PinResolver, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if session == nil {
		session = NewSession(cfg)
	}
	if resolver == nil {
		resolver = NewPinResolver(nil, cfg.Development)
	}
	c := &Client{
		cfg:      cfg,
		session:  session,
		resolver: resolver,
		logger:   slog.Default(),
		standard: newStandardClient(nil),
		pinned:   newPinnedClient(resolver, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the injected session for the auth and localization
// subsystems to mutate.
func (c *Client) Session() *Session { return c.session }

// RequestOptions carries the per-call knobs of Request.
type RequestOptions struct {
	// Params become the query string. Nil values are omitted; everything
	// else is formatted with fmt and percent-encoded.
	Params map[string]any

	// Headers are merged into the assembled header set last, so a caller
	// can add or override headers but never lose one silently.
	Headers map[string]string

	// Timeout overrides the session's default deadline for this call.
	Timeout time.Duration

	// RequireSSL opts a development-mode call into certificate pinning.
	// Production ignores it: pinning is mandatory there.
	RequireSSL bool
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts *RequestOptions) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts *RequestOptions) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, endpoint, body, opts)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts *RequestOptions) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPut, endpoint, body, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts *RequestOptions) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, nil, opts)
}

// Request issues one HTTP request and returns the decoded JSON payload.
//
// The call proceeds through fixed stages: URL building, the transport
// security gate, transport selection, header assembly, dispatch. Policy
// violations (insecure scheme, pinning required but unresolved) fail before
// any network I/O. An unparseable response body decodes as an empty payload
// rather than an error, since many endpoints return empty bodies on success.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, opts *RequestOptions) (json.RawMessage, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	target, err := c.buildURL(endpoint, opts.Params)
	if err != nil {
		return nil, err
	}

	if err := c.checkScheme(target); err != nil {
		return nil, err
	}

	httpClient, err := c.transportFor(target, opts.RequireSSL)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil && method != http.MethodGet {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body for %s %s: %w", method, endpoint, err)
		}
		reqBody = bytes.NewReader(data)
	}

	snap := c.session.snapshot()
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = snap.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, endpoint, err)
	}
	c.assembleHeaders(req, method, snap, opts.Headers)

	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s %s after %s", ErrTimeout, method, endpoint, timeout)
		}
		return nil, fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s %s after %s", ErrTimeout, method, endpoint, timeout)
		}
		return nil, fmt.Errorf("read response %s %s: %w", method, endpoint, err)
	}

	payload := emptyPayload()
	if len(raw) > 0 && json.Valid(raw) {
		payload = json.RawMessage(raw)
	}

	c.logger.Debug("http request",
		"method", method, "path", target.Path, "status", resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if resp.StatusCode == http.StatusUnauthorized && snap.token != "" {
			c.session.expire()
		}
		return nil, decodeHTTPError(resp.StatusCode, payload)
	}
	return payload, nil
}

func emptyPayload() json.RawMessage {
	return json.RawMessage("{}")
}

// buildURL normalizes the configured base URL (trailing slash trimmed), joins
// the endpoint with exactly one leading slash, and appends a query string
// from params. Nil param values are omitted; keys and values are
// percent-encoded independently.
func (c *Client) buildURL(endpoint string, params map[string]any) (*url.URL, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	target, err := url.Parse(base + endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot build URL from base %q and endpoint %q",
			ErrInvalidConfiguration, c.cfg.BaseURL, endpoint)
	}

	if len(params) > 0 {
		q := url.Values{}
		for key, value := range params {
			if value == nil {
				continue
			}
			q.Set(key, fmt.Sprint(value))
		}
		target.RawQuery = q.Encode()
	}
	return target, nil
}

// checkScheme is the transport security gate: every request must be HTTPS
// unless development mode is active and the host is a loopback or
// private-range address. Runs before any network I/O.
func (c *Client) checkScheme(target *url.URL) error {
	if strings.EqualFold(target.Scheme, "https") {
		return nil
	}
	if c.cfg.Development && hostmatch.IsLocal(target.Hostname()) {
		return nil
	}
	return fmt.Errorf("%w: refusing %s request to %s", ErrInsecureConnection, target.Scheme, target.Hostname())
}

// transportFor applies the pinning decision. A host that requires pinning but
// has no resolvable entry fails closed here, before dispatch.
func (c *Client) transportFor(target *url.URL, requireSSL bool) (*http.Client, error) {
	host := target.Hostname()
	switch c.resolver.Decide(host, requireSSL) {
	case PinRequired:
		return c.pinned, nil
	case PinUnavailable:
		return nil, fmt.Errorf("%w: host %q", ErrPinningUnavailable, host)
	default:
		return c.standard, nil
	}
}

// assembleHeaders sets the fixed negotiation and identification headers, the
// conditional auth and geo headers from the session snapshot, and finally the
// caller's headers, which may add to or override the defaults.
func (c *Client) assembleHeaders(req *http.Request, method string, snap sessionSnapshot, extra map[string]string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", snap.locale)
	req.Header.Set("X-App-Locale", snap.locale)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-Id", uuid.NewString())

	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.FrontendKey != "" {
		req.Header.Set("X-Frontend-Key", c.cfg.FrontendKey)
	}
	if snap.token != "" {
		req.Header.Set("Authorization", "Bearer "+snap.token)
	}
	if snap.country != nil {
		req.Header.Set("X-Country-Id", strconv.Itoa(snap.country.ID))
		req.Header.Set("X-Country-Code", snap.country.Code)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}
}

// apiErrorBody is the wire shape of an error response. The errors map values
// arrive as either a single string or an array of strings depending on the
// endpoint, so they decode through a tolerant intermediate.
type apiErrorBody struct {
	Message string                     `json:"message"`
	Errors  map[string]stringOrStrings `json:"errors"`
}

type stringOrStrings []string

func (s *stringOrStrings) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

func decodeHTTPError(status int, payload json.RawMessage) *HTTPError {
	httpErr := &HTTPError{Status: status}
	var body apiErrorBody
	if err := json.Unmarshal(payload, &body); err == nil {
		httpErr.Message = body.Message
		if len(body.Errors) > 0 {
			httpErr.Errors = make(map[string][]string, len(body.Errors))
			for field, msgs := range body.Errors {
				httpErr.Errors[field] = msgs
			}
		}
	}
	return httpErr
}
