package toolchat

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultHandshakeTimeout bounds the wait for a provider's session event.
const DefaultHandshakeTimeout = 5 * time.Second

// ProviderConfig describes one capability provider the user can enable.
type ProviderConfig struct {
	ID      string
	Name    string
	URL     string
	SSEPath string // empty = "/sse"
	Enabled bool   // enable at startup
	Headers map[string]string
}

// ModelConfig selects and tunes the model backend.
type ModelConfig struct {
	Backend      string // "gemini" or "openai"; empty = detect from API keys
	Name         string // empty = backend default
	SystemPrompt string
	FunctionMode FunctionMode
	Temperature  *float64
	MaxTokens    int
}

// LogConfig controls process logging.
type LogConfig struct {
	Level string // zerolog level name; empty = "info"
	File  string // empty = discard while the TUI runs
}

// Config is the application configuration.
type Config struct {
	Model            ModelConfig
	Providers        []ProviderConfig
	HandshakeTimeout time.Duration
	Log              LogConfig
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			SystemPrompt: "You are a helpful assistant. Use the available tools when they help answer the question.",
			FunctionMode: FunctionModeAuto,
		},
		Providers: []ProviderConfig{
			{ID: "figma", Name: "Figma", URL: "http://localhost:3333"},
		},
		HandshakeTimeout: DefaultHandshakeTimeout,
		Log:              LogConfig{Level: "info"},
	}
}

// Provider returns the provider config with the given ID.
func (c Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Model.Temperature != nil && (*c.Model.Temperature < 0 || *c.Model.Temperature > 2) {
		return fmt.Errorf("model temperature must be in [0, 2], got %g: %w", *c.Model.Temperature, ErrValidation)
	}
	switch c.Model.FunctionMode {
	case "", FunctionModeAuto, FunctionModeAny:
	default:
		return fmt.Errorf("model function mode must be auto or any, got %q: %w", c.Model.FunctionMode, ErrValidation)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout must be non-negative, got %s: %w", c.HandshakeTimeout, ErrValidation)
	}
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider %d: empty id: %w", i, ErrValidation)
		}
		if seen[p.ID] {
			return fmt.Errorf("provider %q: duplicate id: %w", p.ID, ErrValidation)
		}
		seen[p.ID] = true
		u, err := url.Parse(p.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("provider %q: invalid url %q: %w", p.ID, p.URL, ErrValidation)
		}
	}
	return nil
}
