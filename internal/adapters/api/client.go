// Package api is the HTTP adapter for the shopdesk backend. It owns bearer
// attachment, the 401 retry-once policy, and mapping wire failures onto the
// session error taxonomy. Feature modules issue their domain calls through
// Client.Do; the auth and subscription endpoints live in auth.go and
// subscriptions.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopdesk/shopdesk-go/internal/apperrors"
	"github.com/shopdesk/shopdesk-go/internal/observability/statsd"
)

// Authorizer supplies the current access credential and the single-flight
// renewal the client falls back to on a 401. Implemented by the token store
// plus refresh coordinator pair; bound after construction because the
// coordinator itself renews through this client.
type Authorizer interface {
	// Access returns the in-memory access credential, or "" if none.
	Access() string
	// HasSession reports whether any credential exists at all.
	HasSession() bool
	// EnsureRenewed performs or joins a single-flight credential renewal.
	EnsureRenewed(ctx context.Context) (string, error)
}

// Client is the HTTP client for the shopdesk backend.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Authorizer

	logger  *slog.Logger
	metrics statsd.Sink
}

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	// BaseURL is the backend API root, without a trailing slash.
	BaseURL string
	// HTTPClient is the underlying client. Defaults to a 30s-timeout client.
	HTTPClient *http.Client
	Config     ClientConfig
}

// ClientConfig holds optional observability deps.
type ClientConfig struct {
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewClient constructs a new backend client. Call UseAuthorizer before
// issuing protected requests.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		panic("BaseURL is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		logger:  opts.Config.Logger,
		metrics: opts.Config.Metrics,
	}
}

// UseAuthorizer binds the credential source. Separate from construction
// because the refresh coordinator renews through this same client.
func (c *Client) UseAuthorizer(auth Authorizer) {
	c.auth = auth
}

// RequestSpec describes one backend call.
type RequestSpec struct {
	Method string
	Path   string
	// Body is JSON-encoded when non-nil.
	Body any
	// Out receives the JSON-decoded response body when non-nil.
	Out any
	// Public skips the Authorization header and the 401 retry hop. Only the
	// login and renewal endpoints set it.
	Public bool
}

// Do executes one call against the backend. Protected calls carry the bearer
// credential; on a 401 the client joins a single-flight renewal and replays
// the identical request exactly once. A second 401 is terminal. When no
// credential exists at all the call fails locally, before any dispatch.
func (c *Client) Do(ctx context.Context, spec RequestSpec) error {
	var payload []byte
	if spec.Body != nil {
		var err error
		payload, err = json.Marshal(spec.Body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "encode request body")
		}
	}

	token := ""
	if !spec.Public {
		if c.auth == nil || !c.auth.HasSession() {
			return apperrors.RenewalExpired("not signed in")
		}
		token = c.auth.Access()
	}

	requestID := uuid.NewString()
	status, err := c.attempt(ctx, spec, payload, token, requestID)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !spec.Public {
		c.count("auth.retry")
		newToken, renewErr := c.auth.EnsureRenewed(ctx)
		if renewErr != nil {
			return renewErr
		}

		status, err = c.attempt(ctx, spec, payload, newToken, requestID)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			// Renewed credential still rejected; never retried a third time.
			return apperrors.RenewalExpired("request rejected after credential renewal").WithStatus(status)
		}
	}

	if status == http.StatusUnauthorized {
		return apperrors.Internal("unauthorized").WithStatus(status)
	}
	return nil
}

// attempt performs one wire round trip. A non-2xx, non-401 status is
// returned as an error; 401 is handed back to Do for the retry decision.
func (c *Client) attempt(ctx context.Context, spec RequestSpec, payload []byte, token, requestID string) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, c.baseURL+spec.Path, body)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeNetwork, fmt.Sprintf("%s %s", spec.Method, spec.Path))
	}
	defer resp.Body.Close()

	c.logDebug(ctx, "api call",
		"method", spec.Method,
		"path", spec.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
		"request_id", requestID,
	)

	if resp.StatusCode == http.StatusUnauthorized {
		// Drain so the connection can be reused by the retry.
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readErrorDetail(resp.Body)
		msg := fmt.Sprintf("%s %s: backend returned %d", spec.Method, spec.Path, resp.StatusCode)
		if detail != "" {
			msg += ": " + detail
		}
		return resp.StatusCode, apperrors.Internal(msg).WithStatus(resp.StatusCode)
	}

	if spec.Out != nil {
		if err := json.NewDecoder(resp.Body).Decode(spec.Out); err != nil {
			return resp.StatusCode, apperrors.Wrap(err, apperrors.CodeInternal, "decode response body")
		}
	}
	return resp.StatusCode, nil
}

// readErrorDetail pulls the backend's {"detail": "..."} message if present.
func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	return ""
}

func (c *Client) count(name string) {
	if c.metrics != nil {
		c.metrics.Count(name, 1, nil)
	}
}

func (c *Client) logDebug(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.DebugContext(ctx, msg, args...)
	}
}
