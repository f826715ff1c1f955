package bubbletea_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/agent"
	bt "github.com/fwojciec/toolchat/bubbletea"
	"github.com/fwojciec/toolchat/chat"
	"github.com/fwojciec/toolchat/mock"
	"github.com/stretchr/testify/require"
)

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiSeq.ReplaceAllString(s, "")
}

func styles() bt.Styles {
	return bt.NewStyles(toolchat.DefaultTheme())
}

// fakeProviders is an in-memory provider set.
func fakeProviders(ids ...string) *mock.Providers {
	var mu sync.Mutex
	var order []string
	var configs []toolchat.ProviderConfig
	for _, id := range ids {
		configs = append(configs, toolchat.ProviderConfig{ID: id, Name: id, URL: "http://localhost:3333"})
	}
	isEnabled := func(id string) bool {
		for _, o := range order {
			if o == id {
				return true
			}
		}
		return false
	}
	return &mock.Providers{
		EnableFn: func(_ context.Context, id string) error {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range configs {
				if c.ID == id {
					if !isEnabled(id) {
						order = append(order, id)
					}
					return nil
				}
			}
			return fmt.Errorf("registry: %w: %q", toolchat.ErrUnknownProvider, id)
		},
		DisableFn: func(id string) error {
			mu.Lock()
			defer mu.Unlock()
			order = slices.DeleteFunc(order, func(o string) bool { return o == id })
			return nil
		},
		IsEnabledFn: func(id string) bool {
			mu.Lock()
			defer mu.Unlock()
			return isEnabled(id)
		},
		EnabledFn: func() []string {
			mu.Lock()
			defer mu.Unlock()
			return slices.Clone(order)
		},
		ProvidersFn: func() []toolchat.ProviderConfig { return configs },
	}
}

type source struct{ cat toolchat.Catalog }

func (s source) Catalog() toolchat.Catalog {
	if s.cat == nil {
		return toolchat.StaticCatalog{}
	}
	return s.cat
}

// figmaSource publishes get_nodes backed by a provider that returns result.
func figmaSource(result *toolchat.ToolResult) source {
	table := toolchat.NewDispatchTable()
	table.Register("get_nodes", toolchat.ProviderRef{
		ProviderID: "figma",
		Client: &mock.ProviderClient{
			CallCapabilityFn: func(context.Context, string, json.RawMessage) (*toolchat.ToolResult, error) {
				return result, nil
			},
		},
	})
	return source{cat: toolchat.StaticCatalog{
		Functions: []toolchat.FunctionDeclaration{{Name: "get_nodes", Description: "List nodes"}},
		Table:     table,
	}}
}

// scriptedModel returns the responses in order and errs once they run out.
func scriptedModel(responses ...*toolchat.Response) *mock.Model {
	var mu sync.Mutex
	return &mock.Model{
		GenerateFn: func(context.Context, toolchat.Request) (*toolchat.Response, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(responses) == 0 {
				return nil, errors.New("no scripted response")
			}
			r := responses[0]
			responses = responses[1:]
			return r, nil
		},
	}
}

// newChat wires a chat service over a real orchestrator.
func newChat(model toolchat.Model, src source, p chat.Providers) *chat.Service {
	return chat.New(agent.New(model, src), p)
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, c bt.Chat) bt.Model {
	t.Helper()
	return update(t, bt.New(c, toolchat.DefaultTheme()), tea.WindowSizeMsg{Width: 80, Height: 24})
}

// update sends a message and returns the updated Model.
func update(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	m, _ = updateCmd(t, m, msg)
	return m
}

func updateCmd(t *testing.T, m bt.Model, msg tea.Msg) (bt.Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}

// run executes cmd and feeds the resulting messages back into the model
// until no commands remain. Spinner ticks are dropped.
func run(t *testing.T, m bt.Model, cmd tea.Cmd) bt.Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			var next tea.Cmd
			m, next = updateCmd(t, m, msg)
			queue = append(queue, next)
		}
	}
	return m
}

// enter types text into the input and presses Enter, running the
// resulting commands to completion.
func enter(t *testing.T, m bt.Model, text string) bt.Model {
	t.Helper()
	m.Input.SetValue(text)
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	return run(t, m, cmd)
}
