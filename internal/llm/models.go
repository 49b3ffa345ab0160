package llm

import "strings"

// OpenAIModels is a curated, non-exhaustive list of chat models.
var OpenAIModels = []string{
	"gpt-4o", "gpt-4o-mini", "gpt-4o-realtime-preview", "gpt-4o-audio-preview",
	"gpt-4-turbo", "gpt-4", "gpt-3.5-turbo",
	"o3", "o3-mini", "o4-mini",
	"gpt-5",
}

// GeminiModels is a curated, non-exhaustive list of Gemini models.
var GeminiModels = []string{
	"gemini-1.5-pro", "gemini-1.5-flash", "gemini-1.5-flash-8b",
	"gemini-1.0-pro", "gemini-1.0-pro-vision",
	"gemini-2.5-pro",
}

// DefaultModel is used when neither flags nor config name a model.
const DefaultModel = "gpt-4o-mini"

// InferProvider guesses the provider from a model name. It returns "" when
// the name matches nothing known.
func InferProvider(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case m == "":
		return ""
	case strings.HasPrefix(m, "fake:"):
		return ProviderFake
	case strings.HasPrefix(m, "gemini-"):
		return ProviderGoogle
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return ProviderOpenAI
	}
	for _, name := range OpenAIModels {
		if name == model {
			return ProviderOpenAI
		}
	}
	for _, name := range GeminiModels {
		if name == model {
			return ProviderGoogle
		}
	}
	return ""
}
