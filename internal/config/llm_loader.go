package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/josephgoksu/PageWing/internal/llm"
)

// ChatConfig resolves the provider, model and credentials for the chat model.
// Precedence: explicit config > provider-specific env vars > defaults.
// An empty provider is inferred from the model name when possible.
func (c LLMConfig) ChatConfig() (llm.Config, error) {
	provider := c.Provider
	if provider == "" {
		provider = llm.DefaultProvider
		if p, ok := llm.InferProvider(c.Model); ok {
			provider = string(p)
		}
	}

	llmProvider, err := llm.ValidateProvider(provider)
	if err != nil {
		return llm.Config{}, fmt.Errorf("invalid provider: %w", err)
	}

	model := c.Model
	if model == "" {
		model = llm.DefaultModelForProvider(string(llmProvider))
	}

	baseURL := c.BaseURL
	if baseURL == "" && llmProvider == llm.ProviderOllama {
		baseURL = llm.DefaultOllamaURL
	}

	return llm.Config{
		Provider: llmProvider,
		Model:    model,
		APIKey:   ResolveAPIKey(llmProvider, c.APIKey),
		BaseURL:  baseURL,
		Timeout:  c.Timeout,
	}, nil
}

// GeneratorOptions returns the sampling parameters for every request.
func (c LLMConfig) GeneratorOptions() llm.Options {
	opts := llm.DefaultOptions()
	if c.Temperature > 0 {
		opts.Temperature = c.Temperature
	}
	if c.MaxTokens > 0 {
		opts.MaxTokens = c.MaxTokens
	}
	if c.Timeout > 0 {
		opts.Timeout = c.Timeout
	}
	return opts
}

// ResolveAPIKey returns configured when set, otherwise the first non-empty
// provider-specific environment variable.
func ResolveAPIKey(provider llm.Provider, configured string) string {
	if key := strings.TrimSpace(configured); key != "" {
		return key
	}
	for _, name := range providerEnvKeys(provider) {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

func providerEnvKeys(provider llm.Provider) []string {
	switch provider {
	case llm.ProviderOpenAI:
		// AIPIPE_API_KEY is the gateway key earlier deployments used.
		return []string{"AIPIPE_API_KEY", "OPENAI_API_KEY"}
	case llm.ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	case llm.ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return nil
	}
}
