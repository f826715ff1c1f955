// Package chat holds the state of one interactive chat: the conversation,
// the in-flight round and provider toggles.
package chat

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/agent"
	"github.com/fwojciec/toolchat/registry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Interface compliance checks.
var (
	_ Submitter = (*agent.Orchestrator)(nil)
	_ Providers = (*registry.Registry)(nil)
)

// Submitter runs one round against a conversation.
type Submitter interface {
	Submit(ctx context.Context, conv *toolchat.Conversation, text string, opts ...agent.SubmitOption) (string, error)
}

// Providers enables and disables capability providers.
type Providers interface {
	Enable(ctx context.Context, id string) error
	Disable(id string) error
	IsEnabled(id string) bool
	Enabled() []string
	Providers() []toolchat.ProviderConfig
}

// State is a snapshot of the chat.
type State struct {
	Messages []toolchat.Message
	Response string // last successful reply
	Loading  bool   // a round is in flight
	Err      error  // error of the last round, nil after a success
	Toggling string // provider being enabled or disabled, "" if none
}

// Service owns one conversation. At most one round and one provider toggle
// run at a time.
type Service struct {
	submitter Submitter
	providers Providers
	log       zerolog.Logger
	model     string

	mu       sync.Mutex
	conv     *toolchat.Conversation
	response string
	loading  bool
	err      error
	toggling string

	updates chan struct{}
}

// Option configures a [Service].
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithSystemPrompt sets the system prompt of the conversation.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) { s.conv.SystemPrompt = prompt }
}

// WithModel sets the model ID passed to every round.
func WithModel(model string) Option {
	return func(s *Service) { s.model = model }
}

// New creates a [Service] with an empty conversation.
func New(submitter Submitter, providers Providers, opts ...Option) *Service {
	now := time.Now()
	s := &Service{
		submitter: submitter,
		providers: providers,
		log:       zerolog.Nop(),
		conv:      &toolchat.Conversation{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		updates:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ConversationID returns the ID of the conversation.
func (s *Service) ConversationID() string { return s.conv.ID }

// Updates returns a channel that receives a value after the state changes.
// Notifications coalesce; read State after each one.
func (s *Service) Updates() <-chan struct{} { return s.updates }

func (s *Service) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// State returns a snapshot of the chat.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Messages: slices.Clone(s.conv.Messages),
		Response: s.response,
		Loading:  s.loading,
		Err:      s.err,
		Toggling: s.toggling,
	}
}

// Submit runs one round for text. Blank input is ignored. It returns
// [toolchat.ErrBusy] while another round is in flight.
func (s *Service) Submit(ctx context.Context, text string, opts ...agent.SubmitOption) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return "", toolchat.ErrBusy
	}
	s.loading = true
	s.err = nil
	// The round works on a copy so State never observes a partial round.
	work := *s.conv
	work.Messages = slices.Clone(s.conv.Messages)
	s.mu.Unlock()
	s.notify()

	if s.model != "" {
		opts = append([]agent.SubmitOption{agent.WithModel(s.model)}, opts...)
	}
	reply, err := s.submitter.Submit(ctx, &work, text, opts...)

	s.mu.Lock()
	*s.conv = work
	s.loading = false
	s.err = err
	if err == nil {
		s.response = reply
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.log.Debug().Err(err).Str("conversation", work.ID).Msg("submit failed")
	}
	return reply, err
}

// EnableProvider connects the provider and publishes its capabilities. It
// returns [toolchat.ErrBusy] while another toggle is in flight.
func (s *Service) EnableProvider(ctx context.Context, id string) error {
	return s.toggle(id, func() error { return s.providers.Enable(ctx, id) })
}

// DisableProvider withdraws the provider's capabilities and disconnects it.
func (s *Service) DisableProvider(id string) error {
	return s.toggle(id, func() error { return s.providers.Disable(id) })
}

func (s *Service) toggle(id string, fn func() error) error {
	s.mu.Lock()
	if s.toggling != "" {
		s.mu.Unlock()
		return toolchat.ErrBusy
	}
	s.toggling = id
	s.mu.Unlock()
	s.notify()

	err := fn()

	s.mu.Lock()
	s.toggling = ""
	s.mu.Unlock()
	s.notify()
	return err
}

// IsProviderEnabled reports whether the provider is enabled.
func (s *Service) IsProviderEnabled(id string) bool {
	return s.providers.IsEnabled(id)
}

// EnabledProviders returns the IDs of enabled providers.
func (s *Service) EnabledProviders() []string {
	return s.providers.Enabled()
}

// Providers returns the configured providers.
func (s *Service) Providers() []toolchat.ProviderConfig {
	return s.providers.Providers()
}
