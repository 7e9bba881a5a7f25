package providers

// Mistral returns the descriptor for Mistral AI's chat completions API.
// Mistral is OpenAI-compatible and authenticates with a bearer token.
func Mistral() Descriptor {
	return Descriptor{
		Name:     "mistral",
		EnvKey:   "MISTRAL_KEY",
		Endpoint: "https://api.mistral.ai/v1/chat/completions",
		Auth:     AuthBearer,
		Extract:  ExtractPath(ChatCompletionPath),
	}
}
