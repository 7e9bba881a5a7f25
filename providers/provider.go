// Package providers defines the descriptor table for the upstream LLM
// providers the relay can call, and the registry that binds each descriptor
// to its secret at startup.
//
// A Descriptor captures everything that differs between providers: the fixed
// endpoint, how the secret is attached to the outbound request, and how the
// answer text is extracted from the provider's response body. Adding a
// provider is a new Descriptor in the table, not new control flow.
//
// Core types: Descriptor, Provider, Registry, Result.
package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// NoResponse is the text returned when an otherwise valid upstream response
// does not contain the expected answer field.
const NoResponse = "No response"

// AuthMode selects how a provider's secret is attached to outbound requests.
type AuthMode string

// AuthMode constants define the supported authentication styles.
const (
	// AuthBearer sends "Authorization: Bearer <secret>".
	AuthBearer AuthMode = "bearer"
	// AuthQueryParam appends "?key=<secret>" to the endpoint URL and never
	// sends an Authorization header.
	AuthQueryParam AuthMode = "query-param"
	// AuthNone attaches nothing.
	AuthNone AuthMode = "none"
)

// Errors returned by Registry.Lookup. Both ErrUnknownProvider and
// ErrUnavailableProvider wrap ErrInvalidProvider so callers that only care
// about the client-facing class can test for that.
var (
	ErrInvalidProvider     = errors.New("invalid provider")
	ErrUnknownProvider     = fmt.Errorf("%w: not registered", ErrInvalidProvider)
	ErrUnavailableProvider = fmt.Errorf("%w: no credential configured", ErrInvalidProvider)
)

// ErrMalformedResponse is returned by extractors when the upstream body is not
// a JSON document they can read.
var ErrMalformedResponse = errors.New("malformed upstream response")

// Extractor pulls the answer text out of a raw upstream response body.
// Missing fields yield NoResponse; only unreadable bodies yield an error.
type Extractor func(body []byte) (string, error)

// Descriptor is the static, per-provider part of the routing table.
type Descriptor struct {
	// Name is the symbolic provider name used by clients ("gemini").
	Name string
	// EnvKey is the environment variable holding the provider's secret.
	EnvKey string
	// Endpoint is the fixed upstream URL requests are POSTed to.
	Endpoint string
	// Auth selects how the secret is attached.
	Auth AuthMode
	// Extract normalizes the upstream response body.
	Extract Extractor
}

// Origin returns the scheme://host part of the endpoint, as used in a
// Content-Security-Policy source list.
func (d Descriptor) Origin() string {
	u, err := url.Parse(d.Endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// authorizer attaches a secret to a request under construction.
type authorizer func(u *url.URL, h http.Header, secret string)

// authorizers maps each AuthMode to the single place that knows how to apply
// it. An AuthMode missing from this table cannot be registered.
var authorizers = map[AuthMode]authorizer{
	AuthBearer: func(_ *url.URL, h http.Header, secret string) {
		h.Set("Authorization", "Bearer "+secret)
	},
	AuthQueryParam: func(u *url.URL, _ http.Header, secret string) {
		q := u.Query()
		q.Set("key", secret)
		u.RawQuery = q.Encode()
	},
	AuthNone: func(*url.URL, http.Header, string) {},
}

// Provider is a Descriptor bound to its secret.
type Provider struct {
	Descriptor
	secret string
}

// Available reports whether the provider has a credential and may be called.
func (p Provider) Available() bool { return p.secret != "" }

// NewRequest builds the outbound POST for payload. payload is sent exactly as
// given; a nil payload sends no body.
func (p Provider) NewRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	auth, ok := authorizers[p.Auth]
	if !ok {
		return nil, fmt.Errorf("provider %s: unsupported auth mode %q", p.Name, p.Auth)
	}

	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("provider %s: invalid endpoint: %w", p.Name, err)
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	auth(u, header, p.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = header
	return req, nil
}

// Result is the normalized answer returned for every provider.
type Result struct {
	Text string `json:"text"`
}
