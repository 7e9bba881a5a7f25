package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"

	airelay "github.com/ferro-labs/ai-relay"
	"github.com/ferro-labs/ai-relay/internal/logging"
	"github.com/ferro-labs/ai-relay/internal/metrics"
	"github.com/ferro-labs/ai-relay/providers"
)

// Client-facing error messages. Details go to the log only.
const (
	msgInvalidProvider = "Invalid provider"
	msgInvalidBody     = "Invalid request body"
	msgTooLarge        = "Payload too large"
	msgAIError         = "AI error"
)

// envelopeSchema is the shape of a POST /api/ai body. The payload is opaque
// and forwarded as-is, so only the envelope is checked.
var envelopeSchema = jsonschema.MustCompileString("envelope.json", `{
	"type": "object",
	"properties": {
		"provider": {"type": "string"}
	}
}`)

// aiRequest is the decoded POST /api/ai body.
type aiRequest struct {
	Provider string          `json:"provider"`
	Payload  json.RawMessage `json:"payload"`
}

// aiHandler handles POST /api/ai.
func aiHandler(relay *airelay.Relay, bodyLimit int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, bodyLimit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				metrics.BodyRejections.WithLabelValues("too_large").Inc()
				log.Warn("request body over limit", "limit", tooLarge.Limit)
				writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
				return
			}
			metrics.BodyRejections.WithLabelValues("invalid").Inc()
			log.Warn("reading request body", "error", err.Error())
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		req, err := decodeRequest(body)
		if err != nil {
			metrics.BodyRejections.WithLabelValues("invalid").Inc()
			log.Warn("invalid request body", "error", err.Error())
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		// The browser going away must not abort a call that is already
		// spending provider credit.
		ctx := context.WithoutCancel(r.Context())
		res, err := relay.Route(ctx, req.Provider, req.Payload)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, res)
		case errors.Is(err, providers.ErrInvalidProvider):
			writeError(w, http.StatusBadRequest, msgInvalidProvider)
		default:
			writeError(w, http.StatusInternalServerError, msgAIError)
		}
	}
}

// decodeRequest validates the envelope and decodes it. An absent payload
// stays nil so no body is sent upstream.
func decodeRequest(body []byte) (aiRequest, error) {
	var req aiRequest

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return req, err
	}
	if dec.More() {
		return req, errors.New("trailing data after JSON body")
	}
	if err := envelopeSchema.Validate(doc); err != nil {
		return req, err
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

// healthHandler handles GET /health.
func healthHandler(relay *airelay.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"providers": relay.Registry().Available(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
