package providers

import (
	"github.com/tidwall/gjson"
)

// Response paths for the two upstream shapes the relay understands.
const (
	// ChatCompletionPath is the OpenAI-compatible chat completion answer.
	ChatCompletionPath = "choices.0.message.content"
	// CandidatesPath is the Gemini generateContent answer.
	CandidatesPath = "candidates.0.content.parts.0.text"
)

// ExtractPath returns an Extractor that reads the string at a gjson path.
// Any missing level, an empty string or a non-string value yields NoResponse.
// A body that is not valid JSON, or is JSON null, is ErrMalformedResponse.
func ExtractPath(path string) Extractor {
	return func(body []byte) (string, error) {
		if !gjson.ValidBytes(body) {
			return "", ErrMalformedResponse
		}
		doc := gjson.ParseBytes(body)
		if doc.Type == gjson.Null {
			return "", ErrMalformedResponse
		}
		v := doc.Get(path)
		if v.Type != gjson.String || v.Str == "" {
			return NoResponse, nil
		}
		return v.Str, nil
	}
}
