package providers

// DeepSeek returns the descriptor for the DeepSeek chat completions API.
// Note the endpoint has no /v1 prefix.
func DeepSeek() Descriptor {
	return Descriptor{
		Name:     "deepseek",
		EnvKey:   "DEEPSEEK_KEY",
		Endpoint: "https://api.deepseek.com/chat/completions",
		Auth:     AuthBearer,
		Extract:  ExtractPath(ChatCompletionPath),
	}
}
