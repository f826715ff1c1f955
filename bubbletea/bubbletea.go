// Package bubbletea provides the Bubble Tea chat TUI.
package bubbletea

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/agent"
	"github.com/fwojciec/toolchat/chat"
)

// Interface compliance check.
var _ Chat = (*chat.Service)(nil)

// ToggleTimeout bounds how long enabling a provider may take, handshake and
// capability listing included.
const ToggleTimeout = 30 * time.Second

// Chat is the chat state the TUI drives.
type Chat interface {
	Submit(ctx context.Context, text string, opts ...agent.SubmitOption) (string, error)
	State() chat.State
	EnableProvider(ctx context.Context, id string) error
	DisableProvider(id string) error
	IsProviderEnabled(id string) bool
	EnabledProviders() []string
	Providers() []toolchat.ProviderConfig
}

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. When ctx is cancelled, the program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// RoundEventMsg wraps a round event for delivery to the model.
type RoundEventMsg struct {
	Event toolchat.Event
}

// RoundDoneMsg signals that a round has completed.
type RoundDoneMsg struct {
	Reply string
	Err   error
}

// ToggleDoneMsg signals that a provider toggle has completed.
type ToggleDoneMsg struct {
	ID     string
	Enable bool
	Err    error
}
