package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is a renderable element of the transcript.
// View takes a width so the root model controls layout and blocks are
// testable in isolation.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// ToggleMsg tells a collapsible block to toggle its collapsed state.
type ToggleMsg struct{}

// blockSeparator returns the text placed between two adjacent blocks.
// A tool result sits directly under its call.
func blockSeparator(prev, curr MessageBlock) string {
	_, call := prev.(*ToolCallBlock)
	_, result := curr.(*ToolResultBlock)
	if call && result {
		return "\n"
	}
	return "\n\n"
}
