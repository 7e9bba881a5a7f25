// Package airelay forwards normalized chat-completion requests from a browser
// client to one of a fixed set of LLM providers and returns a normalized
// answer.
//
// The Relay type is the main entry point: build a providers.Registry from the
// process environment once at startup, create a Relay with New, and call
// Route for each inbound request. Route never retries and never leaks
// upstream error detail to its caller beyond the error class.
//
// Server settings (port, document root, body limit, CSP sources) are
// configured via [Config], which can be loaded from a YAML or JSON file using
// [LoadConfig].
package airelay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ferro-labs/ai-relay/internal/logging"
	"github.com/ferro-labs/ai-relay/internal/metrics"
	"github.com/ferro-labs/ai-relay/providers"
)

// maxErrorSnippet bounds how much of a non-2xx upstream body is kept for the
// server-side log.
const maxErrorSnippet = 512

// UpstreamError is returned by Route for any failure after a provider has been
// selected: transport errors, non-2xx statuses and unreadable bodies. Its
// message is meant for server logs only.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusError records a non-2xx upstream status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures a Relay.
type Option func(*Relay)

// WithHTTPClient sets the client used for upstream calls. The default is a
// zero-value http.Client: default transport, no overall timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) {
		if c != nil {
			r.client = c
		}
	}
}

// Relay routes requests to providers from an immutable registry. It holds no
// per-request state and is safe for concurrent use.
type Relay struct {
	registry *providers.Registry
	client   *http.Client
}

// New creates a Relay over registry.
func New(registry *providers.Registry, opts ...Option) *Relay {
	r := &Relay{
		registry: registry,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the provider registry the relay routes over.
func (r *Relay) Registry() *providers.Registry { return r.registry }

// Route sends payload verbatim to the named provider and returns the
// normalized answer.
//
// An unknown or uncredentialed provider fails with an error wrapping
// providers.ErrInvalidProvider before any network I/O. Every later failure is
// an *UpstreamError. A well-formed upstream response that lacks the answer
// field is not an error: its text is providers.NoResponse.
func (r *Relay) Route(ctx context.Context, name string, payload []byte) (*providers.Result, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	p, err := r.registry.Lookup(name)
	if err != nil {
		metrics.RelayRequestsTotal.WithLabelValues(r.providerLabel(name), "rejected").Inc()
		log.Warn("relay request rejected", "provider", name, "error", err.Error())
		return nil, err
	}

	text, err := r.call(ctx, p, payload)
	latency := time.Since(start)
	metrics.UpstreamDuration.WithLabelValues(p.Name).Observe(latency.Seconds())

	if err != nil {
		uerr := &UpstreamError{Provider: p.Name, Err: err}
		metrics.RelayRequestsTotal.WithLabelValues(p.Name, "error").Inc()
		metrics.UpstreamErrors.WithLabelValues(p.Name, errorType(err)).Inc()
		log.Error("upstream request failed",
			"provider", p.Name,
			"latency_ms", latency.Milliseconds(),
			"error", uerr.Error(),
		)
		return nil, uerr
	}

	status := "success"
	if text == providers.NoResponse {
		status = "degraded"
	}
	metrics.RelayRequestsTotal.WithLabelValues(p.Name, status).Inc()
	log.Info("relay request completed",
		"provider", p.Name,
		"latency_ms", latency.Milliseconds(),
		"degraded", status == "degraded",
	)

	return &providers.Result{Text: text}, nil
}

// call performs the single outbound POST and extracts the answer.
func (r *Relay) call(ctx context.Context, p providers.Provider, payload []byte) (string, error) {
	req, err := p.NewRequest(ctx, payload)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", redact(err, p.Endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", redact(err, p.Endpoint))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet]
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	return p.Extract(body)
}

// providerLabel keeps metric cardinality bounded when clients send arbitrary
// provider names.
func (r *Relay) providerLabel(name string) string {
	if _, ok := r.registry.Get(name); ok {
		return name
	}
	return "unknown"
}

// redact replaces the request URL inside transport errors with the bare
// endpoint. Query-param providers carry their secret in the URL, and
// *url.Error prints it verbatim.
func redact(err error, endpoint string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = endpoint
	}
	return err
}

func errorType(err error) string {
	var serr *StatusError
	switch {
	case errors.As(err, &serr):
		return "status"
	case errors.Is(err, providers.ErrMalformedResponse):
		return "malformed"
	default:
		return "network"
	}
}
