package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/toolchat"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*ToolResultBlock)(nil)

// maxPreviewWidth is the display width of a collapsed result preview.
const maxPreviewWidth = 60

// ToolResultBlock renders the outcome of a function call.
// Successful results start collapsed; failures are always expanded.
type ToolResultBlock struct {
	result    toolchat.ToolInvocationResult
	collapsed bool
	styles    Styles
}

// NewToolResultBlock creates a ToolResultBlock.
func NewToolResultBlock(result toolchat.ToolInvocationResult, styles Styles) *ToolResultBlock {
	return &ToolResultBlock{result: result, collapsed: result.Success, styles: styles}
}

// IsError reports whether the invocation failed.
func (b *ToolResultBlock) IsError() bool { return !b.result.Success }

// Collapsed reports whether only the preview is shown.
func (b *ToolResultBlock) Collapsed() bool { return b.collapsed }

func (b *ToolResultBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok && b.result.Success {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ToolResultBlock) View(width int) string {
	icon := b.styles.Success.Render("✓")
	if !b.result.Success {
		icon = b.styles.Error.Render("✗")
	}
	indicator := "▼"
	if b.collapsed {
		indicator = "▶"
	}
	header := b.styles.ToolCall.Render(indicator+" "+b.result.CapabilityName) + " " + icon
	text := b.result.Text()
	if text == "" {
		return header
	}

	if b.collapsed {
		preview := runewidth.Truncate(firstLine(text), min(maxPreviewWidth, max(width-lipgloss.Width(header)-2, 4)), "…")
		return header + "  " + preview
	}

	body := text
	if !b.result.Success {
		body = b.styles.Error.Render(text)
	}
	return header + "\n" + lipgloss.NewStyle().Width(width).Render(body)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
