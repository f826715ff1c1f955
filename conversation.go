package toolchat

import "time"

// Conversation is the ordered turn sequence of one chat. The whole sequence
// is resubmitted to the model on every round.
type Conversation struct {
	ID           string
	SystemPrompt string
	Messages     []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Append adds messages to the end of the conversation and bumps UpdatedAt.
func (c *Conversation) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = time.Now()
}

// LastText returns the text of the most recent model message, or "" if none.
func (c *Conversation) LastText() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if m, ok := c.Messages[i].(ModelMessage); ok && m.Text != "" {
			return m.Text
		}
	}
	return ""
}
