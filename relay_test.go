package airelay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ferro-labs/ai-relay/internal/metrics"
	"github.com/ferro-labs/ai-relay/providers"
)

// recordingTransport answers every request with a canned response and keeps a
// copy of what was sent.
type recordingTransport struct {
	mu     sync.Mutex
	status int
	body   string
	err    error
	reqs   []*http.Request
	bodies [][]byte
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var sent []byte
	if req.Body != nil {
		sent, _ = io.ReadAll(req.Body)
	}
	rt.mu.Lock()
	rt.reqs = append(rt.reqs, req)
	rt.bodies = append(rt.bodies, sent)
	rt.mu.Unlock()

	if rt.err != nil {
		return nil, rt.err
	}
	status := rt.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(rt.body)),
		Request:    req,
	}, nil
}

func (rt *recordingTransport) calls() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.reqs)
}

func testRelay(t *testing.T, rt *recordingTransport, secrets map[string]string) *Relay {
	t.Helper()
	reg, err := providers.NewRegistry(providers.Descriptors(), func(k string) string { return secrets[k] })
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return New(reg, WithHTTPClient(&http.Client{Transport: rt}))
}

var allKeys = map[string]string{
	"MISTRAL_KEY":  "mistral-secret",
	"GROQ_KEY":     "groq-secret",
	"DEEPSEEK_KEY": "deepseek-secret",
	"GEMINI_KEY":   "gemini-secret",
}

func TestRoute_InvalidProviderMakesNoCall(t *testing.T) {
	rt := &recordingTransport{body: `{"choices":[{"message":{"content":"x"}}]}`}
	r := testRelay(t, rt, map[string]string{"MISTRAL_KEY": "m"})

	for _, name := range []string{"openai", "", "MISTRAL", "groq", "gemini", "deepseek"} {
		_, err := r.Route(context.Background(), name, []byte(`{}`))
		if !errors.Is(err, providers.ErrInvalidProvider) {
			t.Errorf("Route(%q) error = %v, want ErrInvalidProvider", name, err)
		}
	}
	if n := rt.calls(); n != 0 {
		t.Errorf("made %d upstream calls, want 0", n)
	}
}

func TestRoute_UnknownVsUnavailable(t *testing.T) {
	r := testRelay(t, &recordingTransport{}, nil)

	if _, err := r.Route(context.Background(), "nope", nil); !errors.Is(err, providers.ErrUnknownProvider) {
		t.Errorf("error = %v, want ErrUnknownProvider", err)
	}
	if _, err := r.Route(context.Background(), "groq", nil); !errors.Is(err, providers.ErrUnavailableProvider) {
		t.Errorf("error = %v, want ErrUnavailableProvider", err)
	}
}

func TestRoute_BearerProviders(t *testing.T) {
	for _, name := range []string{"mistral", "groq", "deepseek"} {
		t.Run(name, func(t *testing.T) {
			rt := &recordingTransport{body: `{"choices":[{"message":{"content":"hello"}}]}`}
			r := testRelay(t, rt, allKeys)

			res, err := r.Route(context.Background(), name, []byte(`{"model":"m","messages":[]}`))
			if err != nil {
				t.Fatalf("Route() error: %v", err)
			}
			if res.Text != "hello" {
				t.Errorf("Text = %q, want hello", res.Text)
			}
			if rt.calls() != 1 {
				t.Fatalf("calls = %d, want 1", rt.calls())
			}
			req := rt.reqs[0]
			if got := req.Header.Get("Authorization"); got != "Bearer "+name+"-secret" {
				t.Errorf("Authorization = %q", got)
			}
			if strings.Contains(req.URL.String(), "secret") {
				t.Errorf("URL %q must not contain the secret", req.URL.String())
			}
		})
	}
}

func TestRoute_QueryParamProvider(t *testing.T) {
	rt := &recordingTransport{body: `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`}
	r := testRelay(t, rt, allKeys)

	res, err := r.Route(context.Background(), "gemini", []byte(`{"contents":[]}`))
	if err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	if res.Text != "hi" {
		t.Errorf("Text = %q, want hi", res.Text)
	}
	req := rt.reqs[0]
	if got := req.URL.Query().Get("key"); got != "gemini-secret" {
		t.Errorf("key = %q, want gemini-secret", got)
	}
	if _, ok := req.Header["Authorization"]; ok {
		t.Error("gemini request must not carry an Authorization header")
	}
}

func TestRoute_PayloadForwardedVerbatim(t *testing.T) {
	rt := &recordingTransport{body: `{"choices":[{"message":{"content":"ok"}}]}`}
	r := testRelay(t, rt, allKeys)

	payload := []byte(`{"model":"mistral-small-latest","messages":[{"role":"user","content":"ünïcødé"}],"unknown_field":[1,2,3]}`)
	if _, err := r.Route(context.Background(), "mistral", payload); err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	if !bytes.Equal(rt.bodies[0], payload) {
		t.Errorf("sent body = %s, want %s", rt.bodies[0], payload)
	}
	if rt.reqs[0].Method != http.MethodPost {
		t.Errorf("method = %s, want POST", rt.reqs[0].Method)
	}
}

func TestRoute_MissingFieldDegrades(t *testing.T) {
	tests := []struct {
		provider string
		body     string
	}{
		{"groq", `{"id":"chatcmpl-1"}`},
		{"deepseek", `{"choices":[]}`},
		{"gemini", `{"candidates":[{"finishReason":"SAFETY"}]}`},
		{"gemini", `{}`},
	}
	for _, tt := range tests {
		rt := &recordingTransport{body: tt.body}
		r := testRelay(t, rt, allKeys)

		res, err := r.Route(context.Background(), tt.provider, []byte(`{}`))
		if err != nil {
			t.Fatalf("%s: Route() error: %v", tt.provider, err)
		}
		if res.Text != providers.NoResponse {
			t.Errorf("%s: Text = %q, want %q", tt.provider, res.Text, providers.NoResponse)
		}
	}
}

func TestRoute_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		rt   *recordingTransport
	}{
		{"network", &recordingTransport{err: errors.New("connection refused")}},
		{"non-2xx", &recordingTransport{status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`}},
		{"server error", &recordingTransport{status: http.StatusBadGateway, body: `upstream down`}},
		{"not json", &recordingTransport{body: `<html>oops</html>`}},
		{"null body", &recordingTransport{body: `null`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRelay(t, tt.rt, allKeys)
			_, err := r.Route(context.Background(), "mistral", []byte(`{}`))
			var uerr *UpstreamError
			if !errors.As(err, &uerr) {
				t.Fatalf("error = %v, want *UpstreamError", err)
			}
			if uerr.Provider != "mistral" {
				t.Errorf("Provider = %q, want mistral", uerr.Provider)
			}
			if errors.Is(err, providers.ErrInvalidProvider) {
				t.Error("upstream failure must not be classified as invalid provider")
			}
			if tt.rt.calls() != 1 {
				t.Errorf("calls = %d, want exactly 1 (no retry)", tt.rt.calls())
			}
		})
	}
}

func TestRoute_StatusErrorDetail(t *testing.T) {
	rt := &recordingTransport{status: http.StatusTooManyRequests, body: strings.Repeat("x", 4096)}
	r := testRelay(t, rt, allKeys)

	_, err := r.Route(context.Background(), "groq", nil)
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if serr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d", serr.StatusCode)
	}
	if len(serr.Body) != maxErrorSnippet {
		t.Errorf("len(Body) = %d, want %d", len(serr.Body), maxErrorSnippet)
	}
}

func TestRoute_RedactsSecretFromTransportErrors(t *testing.T) {
	rt := &recordingTransport{err: errors.New("dial tcp: i/o timeout")}
	r := testRelay(t, rt, allKeys)

	_, err := r.Route(context.Background(), "gemini", []byte(`{}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "gemini-secret") {
		t.Errorf("error leaks secret: %v", err)
	}
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		t.Fatalf("expected wrapped *url.Error, got %T", err)
	}
	if uerr.URL != providers.Gemini().Endpoint {
		t.Errorf("redacted URL = %q, want bare endpoint", uerr.URL)
	}
}

func TestRoute_Metrics(t *testing.T) {
	rejected := metrics.RelayRequestsTotal.WithLabelValues("unknown", "rejected")
	degraded := metrics.RelayRequestsTotal.WithLabelValues("deepseek", "degraded")
	beforeRejected := testutil.ToFloat64(rejected)
	beforeDegraded := testutil.ToFloat64(degraded)

	rt := &recordingTransport{body: `{}`}
	r := testRelay(t, rt, allKeys)
	_, _ = r.Route(context.Background(), "made-up-provider", nil)
	_, _ = r.Route(context.Background(), "deepseek", []byte(`{}`))

	if got := testutil.ToFloat64(rejected) - beforeRejected; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(degraded) - beforeDegraded; got != 1 {
		t.Errorf("degraded delta = %v, want 1", got)
	}
}

func TestRoute_Concurrent(t *testing.T) {
	rt := &recordingTransport{body: `{"choices":[{"message":{"content":"c"}}]}`}
	r := testRelay(t, rt, allKeys)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Route(context.Background(), "groq", []byte(`{}`))
			if err != nil || res.Text != "c" {
				t.Errorf("Route() = %v, %v", res, err)
			}
		}()
	}
	wg.Wait()
	if rt.calls() != 32 {
		t.Errorf("calls = %d, want 32", rt.calls())
	}
}
