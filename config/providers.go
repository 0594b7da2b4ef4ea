package config

import "os"

const defaultOllamaHost = "http://localhost:11434"

// envOr returns the named environment variable, or fallback when it is unset
// or empty.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// LoadAnthropicConfig returns the Anthropic API key and model.
// ANTHROPIC_API_KEY overrides the file.
func LoadAnthropicConfig(cfg *Config) (apiKey, model string) {
	var c AnthropicConfig
	if cfg != nil {
		c = cfg.LLM.Anthropic
	}
	return envOr("ANTHROPIC_API_KEY", c.APIKey), c.Model
}

// LoadOllamaConfig returns the Ollama host and model. OLLAMA_HOST and
// OLLAMA_MODEL override the file, and the host falls back to the local daemon.
func LoadOllamaConfig(cfg *Config) (host, model string) {
	var c OllamaConfig
	if cfg != nil {
		c = cfg.LLM.Ollama
	}
	host = envOr("OLLAMA_HOST", c.Host)
	if host == "" {
		host = defaultOllamaHost
	}
	return host, envOr("OLLAMA_MODEL", c.Model)
}

// LoadOpenAIConfig returns the OpenAI key, base URL, model and organization,
// each overridable from OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL and
// OPENAI_ORG_ID.
func LoadOpenAIConfig(cfg *Config) (apiKey, baseURL, model, organization string) {
	var c OpenAIConfig
	if cfg != nil {
		c = cfg.LLM.OpenAI
	}
	return envOr("OPENAI_API_KEY", c.APIKey),
		envOr("OPENAI_BASE_URL", c.BaseURL),
		envOr("OPENAI_MODEL", c.Model),
		envOr("OPENAI_ORG_ID", c.Organization)
}
