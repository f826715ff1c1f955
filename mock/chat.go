package mock

import (
	"context"

	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/agent"
	"github.com/fwojciec/toolchat/chat"
)

// Interface compliance checks.
var (
	_ chat.Submitter = (*Submitter)(nil)
	_ chat.Providers = (*Providers)(nil)
)

// Submitter is a test double for chat.Submitter.
type Submitter struct {
	SubmitFn func(ctx context.Context, conv *toolchat.Conversation, text string, opts ...agent.SubmitOption) (string, error)
}

// Submit delegates to SubmitFn.
func (s *Submitter) Submit(ctx context.Context, conv *toolchat.Conversation, text string, opts ...agent.SubmitOption) (string, error) {
	return s.SubmitFn(ctx, conv, text, opts...)
}

// Providers is a test double for chat.Providers.
// Set the function fields for the methods you need.
type Providers struct {
	EnableFn    func(ctx context.Context, id string) error
	DisableFn   func(id string) error
	IsEnabledFn func(id string) bool
	EnabledFn   func() []string
	ProvidersFn func() []toolchat.ProviderConfig
}

// Enable delegates to EnableFn.
func (p *Providers) Enable(ctx context.Context, id string) error {
	return p.EnableFn(ctx, id)
}

// Disable delegates to DisableFn.
func (p *Providers) Disable(id string) error {
	return p.DisableFn(id)
}

// IsEnabled delegates to IsEnabledFn.
func (p *Providers) IsEnabled(id string) bool {
	return p.IsEnabledFn(id)
}

// Enabled delegates to EnabledFn.
func (p *Providers) Enabled() []string {
	return p.EnabledFn()
}

// Providers delegates to ProvidersFn.
func (p *Providers) Providers() []toolchat.ProviderConfig {
	return p.ProvidersFn()
}
