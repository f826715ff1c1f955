package goldmark_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/goldmark"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiSeq.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	// Force ANSI output so styled spans differ from plain text.
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()
	theme := toolchat.DefaultTheme()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", goldmark.Render("", 80, theme))
	})

	t.Run("plain reply", func(t *testing.T) {
		t.Parallel()
		got := goldmark.Render("There is 1 frame node.", 80, theme)
		assert.Equal(t, "There is 1 frame node.", strings.TrimRight(stripANSI(got), " "))
	})

	t.Run("heading is styled", func(t *testing.T) {
		t.Parallel()
		heading := goldmark.Render("# Frames", 80, theme)
		plain := goldmark.Render("Frames", 80, theme)
		assert.Contains(t, stripANSI(heading), "Frames")
		assert.NotEqual(t, heading, plain)
	})

	t.Run("emphasis and code spans keep their text", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("**bold** *italic* `get_nodes`", 80, theme))
		assert.Contains(t, got, "bold")
		assert.Contains(t, got, "italic")
		assert.Contains(t, got, "get_nodes")
		assert.NotContains(t, got, "`")
		assert.NotContains(t, got, "*")
	})

	t.Run("strikethrough", func(t *testing.T) {
		t.Parallel()
		got := goldmark.Render("~~old~~", 80, theme)
		assert.Contains(t, stripANSI(got), "old")
		assert.NotContains(t, stripANSI(got), "~~")
	})

	t.Run("fenced code keeps lines and language", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("```json\n{\"type\": \"FRAME\", \"name\": \"Hero section\"}\n```", 20, theme))
		assert.Contains(t, got, "json")
		assert.Contains(t, got, `│ {"type": "FRAME", "name": "Hero section"}`)
	})

	t.Run("indented code", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("intro\n\n    line one\n    line two", 80, theme))
		assert.Contains(t, got, "│ line one")
		assert.Contains(t, got, "│ line two")
	})

	t.Run("bullet and ordered lists", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("- one\n- two\n\n3. three\n4. four", 80, theme))
		assert.Contains(t, got, "• one")
		assert.Contains(t, got, "• two")
		assert.Contains(t, got, "3. three")
		assert.Contains(t, got, "4. four")
	})

	t.Run("nested list is indented", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("- outer\n  - inner", 80, theme))
		assert.Contains(t, got, "• outer")
		assert.Contains(t, got, "  • inner")
	})

	t.Run("list continuation lines are indented", func(t *testing.T) {
		t.Parallel()
		src := "- this list item is long enough that it has to wrap onto several lines"
		lines := strings.Split(stripANSI(goldmark.Render(src, 30, theme)), "\n")
		require.Greater(t, len(lines), 1)
		assert.True(t, strings.HasPrefix(lines[0], "• "))
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				assert.True(t, strings.HasPrefix(line, "  "), "continuation: %q", line)
			}
		}
	})

	t.Run("task list", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("- [x] done\n- [ ] todo", 80, theme))
		assert.Contains(t, got, "[x] done")
		assert.Contains(t, got, "[ ] todo")
	})

	t.Run("blockquote has a bar", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("> quoted", 80, theme))
		assert.True(t, strings.HasPrefix(got, "┃ quoted"), got)
	})

	t.Run("table columns align", func(t *testing.T) {
		t.Parallel()
		src := "| Name | Type |\n|---|---|\n| Hero section | FRAME |\n| Logo | VECTOR |"
		lines := strings.Split(stripANSI(goldmark.Render(src, 80, theme)), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "Name          Type", lines[0])
		assert.Contains(t, lines[1], "─")
		assert.Equal(t, "Hero section  FRAME", lines[2])
		assert.Equal(t, "Logo          VECTOR", lines[3])
	})

	t.Run("link shows url", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("[docs](https://example.com/docs)", 80, theme))
		assert.Contains(t, got, "docs (https://example.com/docs)")
	})

	t.Run("thematic break", func(t *testing.T) {
		t.Parallel()
		got := stripANSI(goldmark.Render("above\n\n---\n\nbelow", 80, theme))
		assert.Contains(t, got, "above")
		assert.Contains(t, got, "───")
		assert.Contains(t, got, "below")
	})

	t.Run("paragraph wraps to width", func(t *testing.T) {
		t.Parallel()
		src := "word1 word2 word3 word4 word5 word6 word7 word8 word9 word10 word11 word12"
		lines := strings.Split(goldmark.Render(src, 30, theme), "\n")
		assert.Greater(t, len(lines), 1)
		for _, line := range lines {
			assert.LessOrEqual(t, lipgloss.Width(line), 30)
		}
	})

	t.Run("zero width uses default", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, stripANSI(goldmark.Render("hello world", 0, theme)), "hello world")
	})
}
