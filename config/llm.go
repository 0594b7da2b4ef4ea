package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/PodJamz/8gent-sub005/llm"
	llmanthropic "github.com/PodJamz/8gent-sub005/llm/anthropic"
	llmollama "github.com/PodJamz/8gent-sub005/llm/ollama"
	llmopenai "github.com/PodJamz/8gent-sub005/llm/openai"
)

// LoadProviderConfig collects provider settings, environment overrides applied.
func LoadProviderConfig(cfg *Config) *llm.ProviderConfig {
	providerConfig := &llm.ProviderConfig{}
	providerConfig.AnthropicAPIKey, providerConfig.AnthropicModel = LoadAnthropicConfig(cfg)
	providerConfig.OllamaHost, providerConfig.OllamaModel = LoadOllamaConfig(cfg)
	providerConfig.OpenAIAPIKey, providerConfig.OpenAIBaseURL, providerConfig.OpenAIModel, providerConfig.OpenAIOrg = LoadOpenAIConfig(cfg)
	return providerConfig
}

// NewProviderRegistry builds the provider registry from the configuration.
func NewProviderRegistry(cfg *Config) *llm.ProviderRegistry {
	var preferences []string
	if cfg != nil {
		preferences = cfg.LLM.Providers
	}
	return llm.NewProviderRegistry(LoadProviderConfig(cfg), preferences)
}

// NewLLMClient creates a client for the first configured provider in the
// preference list. The resolved key is returned so callers can log the
// provider and model in use.
func NewLLMClient(cfg *Config, logger zerolog.Logger) (llm.Client, *llm.ClientKey, error) {
	key, err := NewProviderRegistry(cfg).Resolve("")
	if err != nil {
		return nil, nil, fmt.Errorf("resolve llm provider: %w", err)
	}

	var client llm.Client
	switch key.Provider {
	case llm.ProviderAnthropic:
		client = llmanthropic.NewAnthropicClient(key.APIKey, key.Model, logger)
	case llm.ProviderOllama:
		ollamaClient, err := llmollama.NewOllamaClient(key.Host, key.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("create ollama client: %w", err)
		}
		client = ollamaClient
	case llm.ProviderOpenAI:
		client = llmopenai.NewOpenAIClient(key.APIKey, key.BaseURL, key.Model, key.Organization)
	default:
		return nil, nil, fmt.Errorf("unknown provider: %s", key.Provider)
	}

	logger.Debug().
		Str("provider", key.Provider).
		Str("model", key.Model).
		Msg("LLM client created")
	return client, key, nil
}
