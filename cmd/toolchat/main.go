// Command toolchat is a terminal chat client that lets a generative model
// call the tools of MCP capability providers reached over SSE.
//
// Usage:
//
//	GEMINI_API_KEY=... toolchat [flags]
//	OPENAI_API_KEY=... toolchat [flags]
//
// Flags:
//
//	-config string     Path to config file (default: $XDG_CONFIG_HOME/toolchat/config.yaml)
//	-backend string    Model backend: gemini, openai (auto-detected from env vars if omitted)
//	-model string      Model ID (default: backend default)
//	-api-key string    API key (overrides the backend's env var)
//	-base-url string   API base URL for OpenAI-compatible servers
//	-log-file string   Write JSON logs to this file
//	-log-level string  Log level: debug, info, warn, error
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/agent"
	bt "github.com/fwojciec/toolchat/bubbletea"
	"github.com/fwojciec/toolchat/chat"
	"github.com/fwojciec/toolchat/logging"
	"github.com/fwojciec/toolchat/registry"
	"github.com/fwojciec/toolchat/yaml"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "toolchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to config file")
		backend    = flag.String("backend", "", "Model backend: gemini, openai (auto-detected from env vars if omitted)")
		model      = flag.String("model", "", "Model ID (backend-specific)")
		apiKey     = flag.String("api-key", "", "API key (overrides the backend's env var)")
		baseURL    = flag.String("base-url", "", "API base URL for OpenAI-compatible servers")
		logFile    = flag.String("log-file", "", "Write JSON logs to this file")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg = applyFlags(cfg, *backend, *model, *logFile, *logLevel)

	log, err := logging.New(cfg.Log, nil)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, err := resolveModel(ctx, backendConfig{
		backend:   cfg.Model.Backend,
		apiKey:    *apiKey,
		baseURL:   firstNonEmpty(*baseURL, os.Getenv("OPENAI_BASE_URL")),
		model:     cfg.Model.Name,
		geminiEnv: os.Getenv("GEMINI_API_KEY"),
		openaiEnv: os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		return err
	}

	reg := registry.New(cfg.Providers, registry.SSEDialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Logger:           log.Logger,
	}, registry.WithLogger(log.Logger))
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn().Err(err).Msg("close providers")
		}
	}()
	enableConfigured(ctx, reg, cfg.Providers, log)

	orch := agent.New(m, reg,
		agent.WithLogger(log.Logger),
		agent.WithFunctionMode(cfg.Model.FunctionMode),
		agent.WithMaxTokens(cfg.Model.MaxTokens),
		agent.WithTemperature(cfg.Model.Temperature),
	)
	svc := chat.New(orch, reg,
		chat.WithLogger(log.Logger),
		chat.WithSystemPrompt(cfg.Model.SystemPrompt),
	)
	log.Info().Str("conversation", svc.ConversationID()).Msg("chat started")

	if err := bt.Run(ctx, bt.New(svc, toolchat.DefaultTheme())); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// loadConfig reads the config file. A missing file at the default location
// yields the default config; an explicit path must exist.
func loadConfig(path string) (toolchat.Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := yaml.DefaultPath()
		if err != nil {
			return toolchat.DefaultConfig(), nil
		}
		path = p
	}
	cfg, err := yaml.Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return toolchat.DefaultConfig(), nil
	default:
		return toolchat.Config{}, fmt.Errorf("load config: %w", err)
	}
}

// applyFlags overrides config values with non-empty flag values.
func applyFlags(cfg toolchat.Config, backend, model, logFile, logLevel string) toolchat.Config {
	if backend != "" {
		cfg.Model.Backend = backend
	}
	if model != "" {
		cfg.Model.Name = model
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg
}

// enableTimeout bounds each startup enable, handshake and listing included.
const enableTimeout = 30 * time.Second

// enableConfigured enables the providers marked enabled in the config.
// Failures are logged; the provider can be enabled later from the TUI.
func enableConfigured(ctx context.Context, reg *registry.Registry, providers []toolchat.ProviderConfig, log *logging.Logger) {
	for _, p := range providers {
		if !p.Enabled {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, enableTimeout)
		err := reg.Enable(ctx, p.ID)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("provider", p.ID).Msg("enable on startup failed")
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
