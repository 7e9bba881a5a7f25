package providers

// Gemini returns the descriptor for Google Gemini's generateContent API.
//
// Gemini authenticates via the ?key= query parameter, so requests to it never
// carry an Authorization header. Its answer is nested under
// candidates[].content.parts[] rather than choices[].message.
func Gemini() Descriptor {
	return Descriptor{
		Name:     "gemini",
		EnvKey:   "GEMINI_KEY",
		Endpoint: "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
		Auth:     AuthQueryParam,
		Extract:  ExtractPath(CandidatesPath),
	}
}
