package bubbletea

import (
	"bytes"
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/toolchat"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*ToolCallBlock)(nil)

// ToolCallBlock renders a function call with a collapsible argument view.
// Collapsed, the arguments are shown as a one-line preview.
type ToolCallBlock struct {
	provider  string
	call      toolchat.FunctionCall
	collapsed bool
	styles    Styles
}

// NewToolCallBlock creates a ToolCallBlock that starts collapsed.
func NewToolCallBlock(providerID string, call toolchat.FunctionCall, styles Styles) *ToolCallBlock {
	return &ToolCallBlock{provider: providerID, call: call, collapsed: true, styles: styles}
}

// Name returns the capability name.
func (b *ToolCallBlock) Name() string { return b.call.Name }

// Collapsed reports whether the arguments are hidden.
func (b *ToolCallBlock) Collapsed() bool { return b.collapsed }

func (b *ToolCallBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ToolCallBlock) View(width int) string {
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	label := b.call.Name
	if b.provider != "" {
		label = b.provider + "/" + b.call.Name
	}
	header := b.styles.ToolCall.Render(indicator + " " + label)

	if b.collapsed {
		args := compactArgs(b.call.Arguments)
		if args == "" || args == "{}" {
			return header
		}
		room := width - lipgloss.Width(header) - 2
		if room < 4 {
			return header
		}
		return header + "  " + b.styles.Muted.Render(runewidth.Truncate(args, room, "…"))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, b.call.Arguments, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(b.call.Arguments)
	}
	if pretty.Len() == 0 {
		return header
	}
	return header + "\n" + lipgloss.NewStyle().Width(width).Render(b.styles.Muted.Render(pretty.String()))
}

func compactArgs(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
