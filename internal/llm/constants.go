package llm

import "time"

// Provider constants
const (
	// DefaultProvider is the default LLM provider
	DefaultProvider = ProviderOpenAI

	// ProviderOpenAI represents OpenAI and any OpenAI-compatible gateway
	ProviderOpenAI = "openai"

	// ProviderOllama represents the Ollama provider
	ProviderOllama = "ollama"

	// ProviderAnthropic represents the Anthropic provider
	ProviderAnthropic = "anthropic"

	// ProviderGemini represents the Google Gemini provider
	ProviderGemini = "gemini"
)

// DefaultOpenAIBaseURL points at the AIPipe OpenRouter gateway.
const DefaultOpenAIBaseURL = "https://aipipe.org/openrouter/v1"

// DefaultOllamaURL is the default URL for Ollama server
const DefaultOllamaURL = "http://localhost:11434"

// Sampling defaults for code generation.
const (
	DefaultTemperature float32 = 0.3
	DefaultMaxTokens           = 4000
	DefaultTimeout             = 180 * time.Second
)

var defaultModels = map[Provider]string{
	ProviderOpenAI:    "openai/gpt-4.1-nano",
	ProviderOllama:    "qwen2.5-coder",
	ProviderAnthropic: "claude-haiku-4-5",
	ProviderGemini:    "gemini-2.5-flash",
}

// DefaultModelForProvider returns the default model ID for a given provider.
func DefaultModelForProvider(provider string) string {
	return defaultModels[Provider(provider)]
}
