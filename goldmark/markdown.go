// Package goldmark renders model replies, written in markdown, as styled
// terminal text. Parsing uses goldmark with the GFM extensions; styling
// uses lipgloss.
package goldmark

import "github.com/fwojciec/toolchat"

const defaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output
// wrapped to width. Code blocks and tables are not reflowed.
func Render(source string, width int, theme toolchat.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	return newRenderer(theme).render([]byte(source), width)
}
