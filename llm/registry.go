package llm

import (
	"fmt"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// Default models per provider.
const (
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-haiku-4-5"
	DefaultOllamaHost     = "http://localhost:11434"
)

// ClientKey uniquely identifies an LLM client configuration.
type ClientKey struct {
	Provider     string
	Model        string
	APIKey       string // For credential-based providers
	Host         string // For Ollama
	BaseURL      string // For OpenAI
	Organization string // For OpenAI
}

// ProviderConfig holds the provider settings the registry resolves against.
// It is filled by the config package so llm does not import it.
type ProviderConfig struct {
	AnthropicAPIKey string
	AnthropicModel  string
	OllamaHost      string
	OllamaModel     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIOrg       string
}

// ProviderRegistry picks a provider from an ordered preference list.
type ProviderRegistry struct {
	preferences []string
	config      ProviderConfig
}

// NewProviderRegistry creates a registry. With no preferences, OpenAI is used.
func NewProviderRegistry(providerConfig *ProviderConfig, preferences []string) *ProviderRegistry {
	r := &ProviderRegistry{preferences: preferences}
	if providerConfig != nil {
		r.config = *providerConfig
	}
	if len(r.preferences) == 0 {
		r.preferences = []string{ProviderOpenAI}
	}
	return r
}

// IsProviderEnabled checks if a provider is in the preference list.
func (r *ProviderRegistry) IsProviderEnabled(provider string) bool {
	for _, p := range r.preferences {
		if p == provider {
			return true
		}
	}
	return false
}

// IsProviderConfigured checks if a provider has the settings it needs to make calls.
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	switch provider {
	case ProviderAnthropic:
		return r.config.AnthropicAPIKey != ""
	case ProviderOllama:
		// no credential, but there is no sensible default model
		return r.config.OllamaModel != ""
	case ProviderOpenAI:
		return r.config.OpenAIAPIKey != ""
	default:
		return false
	}
}

// Resolve returns the ClientKey for the first configured provider in
// preference order. When none is configured the first preference is returned
// anyway so that the missing credential surfaces when the client is called.
// A non-empty modelOverride replaces the provider's configured model.
func (r *ProviderRegistry) Resolve(modelOverride string) (*ClientKey, error) {
	for _, p := range r.preferences {
		if r.IsProviderConfigured(p) {
			return r.resolveProviderConfig(p, modelOverride)
		}
	}
	return r.resolveProviderConfig(r.preferences[0], modelOverride)
}

// resolveProviderConfig resolves provider-specific configuration and returns a ClientKey.
func (r *ProviderRegistry) resolveProviderConfig(provider, modelOverride string) (*ClientKey, error) {
	key := &ClientKey{
		Provider: provider,
		Model:    modelOverride,
	}

	switch provider {
	case ProviderAnthropic:
		key.APIKey = r.config.AnthropicAPIKey
		if key.Model == "" {
			key.Model = r.config.AnthropicModel
		}
		if key.Model == "" {
			key.Model = DefaultAnthropicModel
		}

	case ProviderOllama:
		key.Host = r.config.OllamaHost
		if key.Host == "" {
			key.Host = DefaultOllamaHost
		}
		if key.Model == "" {
			key.Model = r.config.OllamaModel
		}
		if key.Model == "" {
			return nil, fmt.Errorf("ollama model not specified and no default configured")
		}

	case ProviderOpenAI:
		key.APIKey = r.config.OpenAIAPIKey
		key.BaseURL = r.config.OpenAIBaseURL
		key.Organization = r.config.OpenAIOrg
		if key.Model == "" {
			key.Model = r.config.OpenAIModel
		}
		if key.Model == "" {
			key.Model = DefaultOpenAIModel
		}

	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return key, nil
}
