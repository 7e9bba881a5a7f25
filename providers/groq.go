package providers

// Groq returns the descriptor for Groq's OpenAI-compatible endpoint.
func Groq() Descriptor {
	return Descriptor{
		Name:     "groq",
		EnvKey:   "GROQ_KEY",
		Endpoint: "https://api.groq.com/openai/v1/chat/completions",
		Auth:     AuthBearer,
		Extract:  ExtractPath(ChatCompletionPath),
	}
}
