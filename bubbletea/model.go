package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/agent"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript. Exported for test access.
	Viewport viewport.Model

	chat    Chat
	theme   toolchat.Theme
	styles  Styles
	spinner spinner.Model

	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	running  bool
	toggling string
	cancel   context.CancelFunc
	eventCh  chan toolchat.Event
	doneCh   chan RoundDoneMsg
	err      error
	ready    bool
}

// New creates a TUI Model for c. Turns already in the conversation are
// rendered on the first window size message.
func New(c Chat, theme toolchat.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask something, or /help"
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Accent))

	return Model{
		Input:      ti,
		chat:       c,
		theme:      theme,
		styles:     styles,
		spinner:    sp,
		blockFocus: -1,
	}
}

// Running reports whether a round is in flight.
func (m Model) Running() bool { return m.running }

// Toggling returns the provider being toggled, or "".
func (m Model) Toggling() string { return m.toggling }

// Err returns the error of the last round, if any.
func (m Model) Err() error { return m.err }

// Blocks returns the transcript blocks.
func (m Model) Blocks() []MessageBlock { return m.blocks }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case RoundEventMsg:
		m = m.processEvent(msg.Event)
		m = m.refresh()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case RoundDoneMsg:
		m.running = false
		if m.cancel != nil {
			m.cancel()
		}
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		if msg.Err != nil {
			if !errors.Is(msg.Err, context.Canceled) {
				m.err = msg.Err
			}
			m.blocks = append(m.blocks, NewErrorBlock(m.failureText(msg.Err), m.styles))
		}
		m = m.updateBlockFocus().refresh()
		return m, nil

	case ToggleDoneMsg:
		m.toggling = ""
		switch {
		case msg.Err != nil:
			verb := "disable"
			if msg.Enable {
				verb = "enable"
			}
			m.blocks = append(m.blocks, NewErrorBlock(fmt.Sprintf("%s %s: %v", verb, msg.ID, msg.Err), m.styles))
		case msg.Enable:
			m.blocks = append(m.blocks, NewNoticeBlock("Enabled "+msg.ID+".", m.styles))
		default:
			m.blocks = append(m.blocks, NewNoticeBlock("Disabled "+msg.ID+".", m.styles))
		}
		return m.refresh(), nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) busy() bool { return m.running || m.toggling != "" }

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	const inputHeight, statusHeight, gaps = 1, 1, 2
	vpHeight := max(msg.Height-inputHeight-statusHeight-gaps, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderConversation()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width - len(m.Input.Prompt)
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		if cmd, ok := ParseCommand(text); ok {
			m.Input.SetValue("")
			return m.runCommand(cmd)
		}
		if m.running {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyTab:
		if m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		m = m.cycleFocusPrev()
		m.Viewport.SetContent(m.renderContent())
		return m, nil
	}

	// Character keys go to the input only; 'j'/'k' also scroll the viewport.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m = m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan toolchat.Event, 64)
	m.doneCh = make(chan RoundDoneMsg, 1)
	m.running = true

	return m, tea.Batch(
		startRound(ctx, m.chat, text, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
		m.spinner.Tick,
	)
}

func (m Model) runCommand(cmd Command) (tea.Model, tea.Cmd) {
	switch cmd.Kind {
	case CommandHelp:
		m.blocks = append(m.blocks, NewNoticeBlock(helpText, m.styles))

	case CommandProviders:
		m.blocks = append(m.blocks, NewNoticeBlock(m.providerList(), m.styles))

	case CommandEnable, CommandDisable:
		enable := cmd.Kind == CommandEnable
		switch {
		case cmd.Arg == "":
			m.blocks = append(m.blocks, NewErrorBlock(usage(cmd), m.styles))
		case m.toggling != "":
			m.blocks = append(m.blocks, NewErrorBlock("busy: "+m.toggling+" is still toggling", m.styles))
		case enable && m.chat.IsProviderEnabled(cmd.Arg):
			m.blocks = append(m.blocks, NewNoticeBlock(cmd.Arg+" is already enabled.", m.styles))
		case !enable && !m.chat.IsProviderEnabled(cmd.Arg):
			m.blocks = append(m.blocks, NewNoticeBlock(cmd.Arg+" is not enabled.", m.styles))
		default:
			m.toggling = cmd.Arg
			m = m.refresh()
			return m, tea.Batch(toggleProvider(m.chat, cmd.Arg, enable), m.spinner.Tick)
		}

	default:
		m.blocks = append(m.blocks, NewErrorBlock(fmt.Sprintf("unknown command /%s, try /help", cmd.Name), m.styles))
	}
	return m.refresh(), nil
}

func (m Model) providerList() string {
	providers := m.chat.Providers()
	if len(providers) == 0 {
		return "No providers configured."
	}
	var b strings.Builder
	b.WriteString("Providers:")
	for _, p := range providers {
		mark := " "
		if m.chat.IsProviderEnabled(p.ID) {
			mark = "●"
		}
		fmt.Fprintf(&b, "\n  %s %s  %s  %s", mark, p.ID, p.Name, p.URL)
	}
	return b.String()
}

// failureText returns the text of the error turn the round committed, or
// the error itself.
func (m Model) failureText(err error) string {
	msgs := m.chat.State().Messages
	if n := len(msgs); n > 0 {
		if em, ok := msgs[n-1].(toolchat.ErrorMessage); ok {
			return em.Text
		}
	}
	return err.Error()
}

// renderConversation creates blocks for turns already in the conversation.
func (m Model) renderConversation() Model {
	for _, msg := range m.chat.State().Messages {
		switch msg := msg.(type) {
		case toolchat.UserMessage:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Text, m.styles))
		case toolchat.ModelMessage:
			for _, call := range msg.Calls {
				m.blocks = append(m.blocks, NewToolCallBlock("", call, m.styles))
			}
			if msg.Text != "" {
				m.blocks = append(m.blocks, NewReplyBlock(msg.Text, m.theme))
			}
		case toolchat.ToolResultMessage:
			m.blocks = append(m.blocks, NewToolResultBlock(msg.Result, m.styles))
		case toolchat.ErrorMessage:
			m.blocks = append(m.blocks, NewErrorBlock(msg.Text, m.styles))
		}
	}
	return m.updateBlockFocus()
}

// processEvent appends the block for a round event.
func (m Model) processEvent(evt toolchat.Event) Model {
	switch e := evt.(type) {
	case toolchat.EventToolCall:
		m.blocks = append(m.blocks, NewToolCallBlock(e.ProviderID, e.Call, m.styles))
	case toolchat.EventToolResult:
		m.blocks = append(m.blocks, NewToolResultBlock(e.Result, m.styles))
	case toolchat.EventModelText:
		m.blocks = append(m.blocks, NewReplyBlock(e.Text, m.theme))
	}
	return m.updateBlockFocus()
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString(blockSeparator(m.blocks[i-1], block))
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func collapsible(b MessageBlock) bool {
	switch b.(type) {
	case *ToolCallBlock, *ToolResultBlock:
		return true
	}
	return false
}

// updateBlockFocus focuses the last collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if collapsible(m.blocks[i]) {
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves focus to the previous collapsible block, wrapping.
func (m Model) cycleFocusPrev() Model {
	n := len(m.blocks)
	if n == 0 {
		return m
	}
	start := m.blockFocus - 1
	if start < 0 {
		start = n - 1
	}
	for i := range n {
		idx := (start - i + n) % n
		if collapsible(m.blocks[idx]) {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	switch {
	case m.running:
		return m.spinner.View() + " " + m.styles.Muted.Render("Thinking... Ctrl+C to cancel")
	case m.toggling != "":
		return m.spinner.View() + " " + m.styles.Muted.Render("Toggling "+m.toggling+"...")
	case m.err != nil:
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	enabled := m.chat.EnabledProviders()
	providers := "no providers"
	if len(enabled) > 0 {
		providers = strings.Join(enabled, ", ")
	}
	return m.styles.Success.Render("● "+providers) + m.styles.Muted.Render("  Enter to send, /help for commands, Ctrl+C to quit")
}

// startRound runs one round in a goroutine and signals completion.
func startRound(ctx context.Context, c Chat, text string, eventCh chan<- toolchat.Event, doneCh chan<- RoundDoneMsg) tea.Cmd {
	return func() tea.Msg {
		reply, err := c.Submit(ctx, text, agent.WithEventHandler(func(e toolchat.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		}))
		close(eventCh)
		doneCh <- RoundDoneMsg{Reply: reply, Err: err}
		return nil
	}
}

// listenForEvent waits for the next event. When the channel closes, it
// returns the round's RoundDoneMsg.
func listenForEvent(ch <-chan toolchat.Event, doneCh <-chan RoundDoneMsg) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return <-doneCh
		}
		return RoundEventMsg{Event: evt}
	}
}

func toggleProvider(c Chat, id string, enable bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if enable {
			ctx, cancel := context.WithTimeout(context.Background(), ToggleTimeout)
			defer cancel()
			err = c.EnableProvider(ctx, id)
		} else {
			err = c.DisableProvider(id)
		}
		return ToggleDoneMsg{ID: id, Enable: enable, Err: err}
	}
}
