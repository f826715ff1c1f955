package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/gemini"
	"github.com/fwojciec/toolchat/openai"
)

// backendConfig carries everything needed to pick a model backend. Env var
// values are passed in; env is only read in main.
type backendConfig struct {
	backend   string
	apiKey    string
	baseURL   string
	model     string
	geminiEnv string
	openaiEnv string
}

// resolveBackend picks the backend name and API key.
func resolveBackend(c backendConfig) (name, key string, err error) {
	name = c.backend
	if name == "" {
		hasGemini := c.geminiEnv != ""
		hasOpenAI := c.openaiEnv != ""
		switch {
		case hasGemini && hasOpenAI:
			return "", "", fmt.Errorf("multiple API keys found (GEMINI_API_KEY, OPENAI_API_KEY): use -backend flag to select")
		case hasGemini:
			name = "gemini"
		case hasOpenAI:
			name = "openai"
		case c.baseURL != "":
			// Local OpenAI-compatible servers usually need no key.
			name = "openai"
		default:
			return "", "", fmt.Errorf("no API key found: set GEMINI_API_KEY or OPENAI_API_KEY (or use -backend and -api-key flags)")
		}
	}

	key = c.apiKey
	switch name {
	case "gemini":
		if key == "" {
			key = c.geminiEnv
		}
		if key == "" {
			return "", "", fmt.Errorf("GEMINI_API_KEY not set (use -api-key flag or environment variable)")
		}
	case "openai":
		if key == "" {
			key = c.openaiEnv
		}
		if key == "" && c.baseURL == "" {
			return "", "", fmt.Errorf("OPENAI_API_KEY not set (use -api-key flag or environment variable)")
		}
	default:
		return "", "", fmt.Errorf("unknown backend %q: must be \"gemini\" or \"openai\"", name)
	}
	return name, key, nil
}

// resolveModel selects and constructs the model backend.
func resolveModel(ctx context.Context, c backendConfig) (toolchat.Model, error) {
	name, key, err := resolveBackend(c)
	if err != nil {
		return nil, err
	}
	switch name {
	case "gemini":
		client, err := gemini.New(ctx, key, gemini.WithModel(c.model))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		opts := []openai.Option{openai.WithModel(c.model)}
		if c.baseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.baseURL))
		}
		return openai.New(key, opts...), nil
	}
}
