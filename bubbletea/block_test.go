package bubbletea_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/toolchat"
	bt "github.com/fwojciec/toolchat/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders prompt and text", func(t *testing.T) {
		t.Parallel()
		view := stripANSI(bt.NewUserMessageBlock("hello world", styles()).View(80))
		assert.True(t, strings.HasPrefix(view, "> hello world"))
	})

	t.Run("wraps to width", func(t *testing.T) {
		t.Parallel()
		view := bt.NewUserMessageBlock("short words that keep going beyond the viewport width easily", styles()).View(30)
		lines := strings.Split(view, "\n")
		assert.Greater(t, len(lines), 1)
		for _, line := range lines {
			assert.LessOrEqual(t, lipgloss.Width(line), 30)
		}
	})
}

func TestReplyBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders markdown", func(t *testing.T) {
		t.Parallel()
		b := bt.NewReplyBlock("There is **1** frame node.", toolchat.DefaultTheme())
		view := stripANSI(b.View(80))
		assert.Contains(t, view, "There is 1 frame node.")
		assert.Equal(t, "There is **1** frame node.", b.Text())
	})

	t.Run("rerenders on width change", func(t *testing.T) {
		t.Parallel()
		b := bt.NewReplyBlock("one two three four five six seven eight nine ten", toolchat.DefaultTheme())
		wide := b.View(80)
		narrow := b.View(20)
		assert.NotEqual(t, wide, narrow)
		assert.Equal(t, wide, b.View(80))
	})
}

func TestToolCallBlock(t *testing.T) {
	t.Parallel()
	call := toolchat.FunctionCall{ID: "c1", Name: "get_nodes", Arguments: json.RawMessage(`{"type": "FRAME"}`)}

	t.Run("collapsed shows provider, name and argument preview", func(t *testing.T) {
		t.Parallel()
		b := bt.NewToolCallBlock("figma", call, styles())
		assert.True(t, b.Collapsed())
		assert.Equal(t, "get_nodes", b.Name())
		view := stripANSI(b.View(80))
		assert.Equal(t, `▶ figma/get_nodes  {"type":"FRAME"}`, view)
	})

	t.Run("toggle expands indented arguments", func(t *testing.T) {
		t.Parallel()
		b := bt.NewToolCallBlock("figma", call, styles())
		b.Update(bt.ToggleMsg{})
		assert.False(t, b.Collapsed())
		view := stripANSI(b.View(80))
		assert.Contains(t, view, "▼ figma/get_nodes")
		assert.Contains(t, view, `  "type": "FRAME"`)
	})

	t.Run("long arguments are truncated to width", func(t *testing.T) {
		t.Parallel()
		long := toolchat.FunctionCall{Name: "search", Arguments: json.RawMessage(`{"query":"` + strings.Repeat("節点", 40) + `"}`)}
		view := bt.NewToolCallBlock("", long, styles()).View(40)
		assert.LessOrEqual(t, lipgloss.Width(view), 40)
		assert.Contains(t, view, "…")
	})

	t.Run("empty arguments show header only", func(t *testing.T) {
		t.Parallel()
		b := bt.NewToolCallBlock("", toolchat.FunctionCall{Name: "ping", Arguments: json.RawMessage(`{}`)}, styles())
		assert.Equal(t, "▶ ping", stripANSI(b.View(80)))
	})
}

func TestToolResultBlock(t *testing.T) {
	t.Parallel()

	t.Run("success starts collapsed with preview", func(t *testing.T) {
		t.Parallel()
		b := bt.NewToolResultBlock(toolchat.Succeeded("get_nodes", "1 node\nsecond line"), styles())
		assert.True(t, b.Collapsed())
		assert.False(t, b.IsError())
		view := stripANSI(b.View(80))
		assert.Equal(t, "▶ get_nodes ✓  1 node", view)
	})

	t.Run("success toggles", func(t *testing.T) {
		t.Parallel()
		b := bt.NewToolResultBlock(toolchat.Succeeded("get_nodes", "1 node\nsecond line"), styles())
		b.Update(bt.ToggleMsg{})
		view := stripANSI(b.View(80))
		assert.Contains(t, view, "second line")
	})

	t.Run("failure is always expanded", func(t *testing.T) {
		t.Parallel()
		b := bt.NewToolResultBlock(toolchat.Failed("get_nodes", "node not found"), styles())
		assert.True(t, b.IsError())
		assert.False(t, b.Collapsed())
		b.Update(bt.ToggleMsg{})
		assert.False(t, b.Collapsed())
		view := stripANSI(b.View(80))
		assert.Contains(t, view, "✗")
		assert.Contains(t, view, "node not found")
	})

	t.Run("preview is truncated by display width", func(t *testing.T) {
		t.Parallel()
		b := bt.NewToolResultBlock(toolchat.Succeeded("get_nodes", strings.Repeat("幅", 100)), styles())
		view := b.View(200)
		assert.Contains(t, view, "…")
		assert.LessOrEqual(t, lipgloss.Width(view), lipgloss.Width("▶ get_nodes ✓  ")+60)
	})
}

func TestErrorAndNoticeBlocks(t *testing.T) {
	t.Parallel()
	assert.Contains(t, stripANSI(bt.NewErrorBlock("Error: boom", styles()).View(80)), "✗ Error: boom")
	assert.Contains(t, stripANSI(bt.NewNoticeBlock("Enabled figma.", styles()).View(80)), "Enabled figma.")
}

func TestBlockSeparator(t *testing.T) {
	t.Parallel()
	call := bt.NewToolCallBlock("figma", toolchat.FunctionCall{Name: "get_nodes"}, styles())
	result := bt.NewToolResultBlock(toolchat.Succeeded("get_nodes", "ok"), styles())
	user := bt.NewUserMessageBlock("hi", styles())

	assert.Equal(t, "\n", bt.BlockSeparator(call, result))
	assert.Equal(t, "\n\n", bt.BlockSeparator(user, call))
	assert.Equal(t, "\n\n", bt.BlockSeparator(result, user))
}

func TestNewStyles(t *testing.T) {
	t.Parallel()
	theme := toolchat.DefaultTheme()
	s := bt.NewStyles(theme)
	assert.Equal(t, lipgloss.Color("4"), s.UserMsg.GetForeground())
	assert.True(t, s.UserMsg.GetBold())
	assert.Equal(t, lipgloss.Color("1"), s.Error.GetForeground())
	assert.True(t, s.Muted.GetFaint())

	theme.Reply = -1
	assert.Equal(t, lipgloss.NoColor{}, bt.NewStyles(theme).Reply.GetForeground())
}
