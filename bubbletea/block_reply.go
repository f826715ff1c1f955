package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/goldmark"
)

var _ MessageBlock = (*ReplyBlock)(nil)

// ReplyBlock renders a model reply as markdown. The rendering is cached
// per width.
type ReplyBlock struct {
	text  string
	theme toolchat.Theme

	width    int
	rendered string
}

// NewReplyBlock creates a ReplyBlock.
func NewReplyBlock(text string, theme toolchat.Theme) *ReplyBlock {
	return &ReplyBlock{text: text, theme: theme}
}

// Text returns the raw reply text.
func (b *ReplyBlock) Text() string { return b.text }

func (b *ReplyBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ReplyBlock) View(width int) string {
	if b.rendered == "" || b.width != width {
		b.rendered = goldmark.Render(b.text, width, b.theme)
		b.width = width
	}
	return b.rendered
}
