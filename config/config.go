package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRemote = "remote"
)

// StoreConfig selects and locates the memory store.
type StoreConfig struct {
	Driver      string `yaml:"driver,omitempty"`       // "sqlite" (default) or "remote"
	SQLitePath  string `yaml:"sqlite_path,omitempty"`  // Database file, ":memory:" for an ephemeral store
	RemoteURL   string `yaml:"remote_url,omitempty"`   // Base URL of the hosted backend
	RemoteToken string `yaml:"remote_token,omitempty"` // Optional bearer token
	Timeout     int    `yaml:"timeout,omitempty"`      // Remote request timeout in seconds
}

// AnthropicConfig represents configuration for Anthropic LLM provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // Anthropic API key
	Model  string `yaml:"model,omitempty"`   // Default model name
}

// OllamaConfig represents configuration for Ollama LLM provider.
type OllamaConfig struct {
	Host  string `yaml:"host,omitempty"`  // Ollama host (default: "http://localhost:11434")
	Model string `yaml:"model,omitempty"` // Default model name
}

// OpenAIConfig represents configuration for OpenAI LLM provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`      // OpenAI API key
	BaseURL      string `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Model        string `yaml:"model,omitempty"`        // Default model name
	Organization string `yaml:"organization,omitempty"` // Organization ID
}

// LLMConfig lists the completion providers in preference order and their settings.
type LLMConfig struct {
	Providers  []string        `yaml:"providers,omitempty"`
	MaxRetries int             `yaml:"max_retries,omitempty"` // Retries for rate limits and 5xx; negative disables
	Anthropic  AnthropicConfig `yaml:"anthropic,omitempty"`
	Ollama     OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI     OpenAIConfig    `yaml:"openai,omitempty"`
}

// IngestionConfig tunes file and transcript ingestion.
type IngestionConfig struct {
	ChunkSize         int   `yaml:"chunk_size,omitempty"`
	MaxEpisodic       int   `yaml:"max_episodic,omitempty"`
	MaxSemantic       int   `yaml:"max_semantic,omitempty"`
	RequestsPerMinute int   `yaml:"requests_per_minute,omitempty"` // 0 disables pacing
	UseAI             *bool `yaml:"use_ai,omitempty"`              // default true; false selects heuristics
}

// AIEnabled reports whether model extraction is enabled.
func (c IngestionConfig) AIEnabled() bool {
	return c.UseAI == nil || *c.UseAI
}

// WatchConfig configures the inbox watcher.
type WatchConfig struct {
	Dir      string `yaml:"dir,omitempty"`      // Directory scanned for new files
	Schedule string `yaml:"schedule,omitempty"` // e.g. "5m", "1h", "0 */15 * * * *" (cron)
	Notify   bool   `yaml:"notify,omitempty"`   // Desktop notification after each import
}

// Config is the full application configuration.
type Config struct {
	UserID    string          `yaml:"user_id,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Ingestion IngestionConfig `yaml:"ingestion,omitempty"`
	Watch     WatchConfig     `yaml:"watch,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	useAI := true
	return Config{
		UserID: "local",
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: "~/.rlm/memory.db",
			Timeout:    30,
		},
		LLM: LLMConfig{
			Providers:  []string{"openai"},
			MaxRetries: 3,
			Ollama: OllamaConfig{
				Host: "http://localhost:11434",
			},
			OpenAI: OpenAIConfig{
				Model: "gpt-4o",
			},
		},
		Ingestion: IngestionConfig{
			ChunkSize:   30000,
			MaxEpisodic: 50,
			MaxSemantic: 30,
			UseAI:       &useAI,
		},
		Watch: WatchConfig{
			Dir:      "~/.rlm/inbox",
			Schedule: "5m",
		},
	}
}

// GetConfigPath returns the default config file path.
// Can be overridden via RLM_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("RLM_CONFIG_PATH"); envPath != "" {
		return ExpandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.rlm/config.yaml"
	}
	return filepath.Join(homeDir, ".rlm", "config.yaml")
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// LoadConfig merges the config file at path (if it exists) onto the defaults
// and applies environment overrides for the user and store. Provider
// environment overrides are applied by the Load*Config helpers.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	expandedPath := ExpandPath(path)
	if _, err := os.Stat(expandedPath); err == nil {
		data, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
		}
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
		// mergo dereferences pointers and skips false, so copy use_ai explicitly
		if fileCfg.Ingestion.UseAI != nil {
			cfg.Ingestion.UseAI = fileCfg.Ingestion.UseAI
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RLM_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("RLM_DB_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	storeURL := os.Getenv("RLM_STORE_URL")
	if storeURL == "" {
		storeURL = os.Getenv("CONVEX_URL")
	}
	if storeURL != "" {
		cfg.Store.RemoteURL = storeURL
	}
	if v := os.Getenv("RLM_STORE_TOKEN"); v != "" {
		cfg.Store.RemoteToken = v
	}
}

// SaveConfig saves the configuration to the specified path.
func SaveConfig(cfg *Config, path string) error {
	expandedPath := ExpandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
