// Package yaml loads [toolchat.Config] from YAML files.
//
// Keys left out of the file keep their [toolchat.DefaultConfig] values. A
// providers list in the file replaces the default list.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/spf13/cast"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath returns $XDG_CONFIG_HOME/toolchat/config.yaml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("yaml: %w", err)
	}
	return filepath.Join(dir, "toolchat", "config.yaml"), nil
}

// Load reads and parses the config file at path. A missing file yields an
// error wrapping fs.ErrNotExist.
func Load(path string) (toolchat.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return toolchat.Config{}, fmt.Errorf("yaml: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return toolchat.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// file mirrors the config file layout. Scalars that users commonly quote or
// write loosely decode through cast.
type file struct {
	Model            *modelFile      `yaml:"model"`
	Providers        *[]providerFile `yaml:"providers"`
	HandshakeTimeout *duration       `yaml:"handshake_timeout"`
	Log              *logFile        `yaml:"log"`
}

type modelFile struct {
	Backend      *string  `yaml:"backend"`
	Name         *string  `yaml:"name"`
	SystemPrompt *string  `yaml:"system_prompt"`
	FunctionMode *string  `yaml:"function_mode"`
	Temperature  *float   `yaml:"temperature"`
	MaxTokens    *integer `yaml:"max_tokens"`
}

type providerFile struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	SSEPath string            `yaml:"sse_path"`
	Enabled boolean           `yaml:"enabled"`
	Headers map[string]string `yaml:"headers"`
}

type logFile struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

// Parse decodes YAML config data on top of the defaults and validates the
// result. Unknown keys at any level are rejected.
func Parse(data []byte) (toolchat.Config, error) {
	cfg := toolchat.DefaultConfig()

	var f file
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return toolchat.Config{}, fmt.Errorf("yaml: %w: %w", toolchat.ErrValidation, err)
	}

	if m := f.Model; m != nil {
		setString(&cfg.Model.Backend, m.Backend)
		setString(&cfg.Model.Name, m.Name)
		setString(&cfg.Model.SystemPrompt, m.SystemPrompt)
		if m.FunctionMode != nil {
			cfg.Model.FunctionMode = toolchat.FunctionMode(strings.ToLower(*m.FunctionMode))
		}
		if m.Temperature != nil {
			t := float64(*m.Temperature)
			cfg.Model.Temperature = &t
		}
		if m.MaxTokens != nil {
			cfg.Model.MaxTokens = int(*m.MaxTokens)
		}
	}
	if f.Providers != nil {
		cfg.Providers = make([]toolchat.ProviderConfig, 0, len(*f.Providers))
		for _, p := range *f.Providers {
			name := p.Name
			if name == "" {
				name = p.ID
			}
			cfg.Providers = append(cfg.Providers, toolchat.ProviderConfig{
				ID:      p.ID,
				Name:    name,
				URL:     p.URL,
				SSEPath: p.SSEPath,
				Enabled: bool(p.Enabled),
				Headers: p.Headers,
			})
		}
	}
	if f.HandshakeTimeout != nil {
		cfg.HandshakeTimeout = time.Duration(*f.HandshakeTimeout)
	}
	if l := f.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
		if l.File != nil {
			cfg.Log.File = expandHome(*l.File)
		}
	}

	if err := cfg.Validate(); err != nil {
		return toolchat.Config{}, fmt.Errorf("yaml: %w", err)
	}
	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// scalar decodes a scalar node into a Go value for cast to coerce.
func scalar(node *yamlv3.Node) (any, error) {
	if node.Kind != yamlv3.ScalarNode {
		return nil, fmt.Errorf("line %d: expected a scalar", node.Line)
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

type float float64

func (f *float) UnmarshalYAML(node *yamlv3.Node) error {
	v, err := scalar(node)
	if err != nil {
		return err
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*f = float(n)
	return nil
}

type integer int

func (i *integer) UnmarshalYAML(node *yamlv3.Node) error {
	v, err := scalar(node)
	if err != nil {
		return err
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*i = integer(n)
	return nil
}

type boolean bool

func (b *boolean) UnmarshalYAML(node *yamlv3.Node) error {
	v, err := scalar(node)
	if err != nil {
		return err
	}
	x, err := cast.ToBoolE(v)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = boolean(x)
	return nil
}

// duration accepts Go duration strings or a number of seconds.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yamlv3.Node) error {
	v, err := scalar(node)
	if err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		x, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("line %d: handshake_timeout: %w", node.Line, err)
		}
		*d = duration(x)
		return nil
	}
	secs, err := cast.ToFloat64E(v)
	if err != nil {
		return fmt.Errorf("line %d: handshake_timeout: %w", node.Line, err)
	}
	*d = duration(time.Duration(secs * float64(time.Second)))
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
