// Package registry manages the set of enabled capability providers and
// publishes the catalog of functions they offer.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/mcp"
	"github.com/fwojciec/toolchat/sse"
	"github.com/rs/zerolog"
)

// Dialer connects to a provider and returns a ready client.
type Dialer interface {
	Dial(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error)
}

// DialerFunc adapts a function to [Dialer].
type DialerFunc func(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error) {
	return f(ctx, cfg)
}

// SSEDialer dials MCP providers over an SSE transport.
type SSEDialer struct {
	HandshakeTimeout time.Duration
	HTTPClient       *http.Client
	Logger           zerolog.Logger
}

// Dial opens a session and performs the MCP handshake.
func (d SSEDialer) Dial(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error) {
	log := d.Logger.With().Str("provider", cfg.ID).Logger()
	opts := []sse.Option{
		sse.WithSSEPath(cfg.SSEPath),
		sse.WithHeaders(cfg.Headers),
		sse.WithHandshakeTimeout(d.HandshakeTimeout),
		sse.WithLogger(log),
	}
	if d.HTTPClient != nil {
		opts = append(opts, sse.WithHTTPClient(d.HTTPClient))
	}
	tr, err := sse.New(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	c := mcp.New(tr, mcp.WithLogger(log))
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// session is one enabled provider.
type session struct {
	client toolchat.ProviderClient
	caps   []toolchat.Capability
	decls  []toolchat.FunctionDeclaration
	done   <-chan struct{} // nil if the client cannot report the session ending
}

// ended reports whether the session's transport has closed underneath it.
func (s *session) ended() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// doner is implemented by clients whose session can end on its own, such as
// an event stream dropped by the provider.
type doner interface {
	Done() <-chan struct{}
}

// Registry tracks which providers are enabled. A provider is enabled exactly
// while its session is open; a session that ends on its own disables its
// provider. Enable and Disable are serialized by toggleMu and dial without
// holding mu, so queries never wait on the network. The catalog is rebuilt
// whole on every change and swapped atomically, so a round in flight keeps
// the snapshot it started with.
type Registry struct {
	providers []toolchat.ProviderConfig
	dialer    Dialer
	log       zerolog.Logger

	toggleMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]*session
	order    []string // enabled IDs, in enable order

	catalog atomic.Pointer[toolchat.StaticCatalog]
}

// Option configures a [Registry].
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New creates a [Registry] over the configured providers. No provider is
// enabled until Enable is called.
func New(providers []toolchat.ProviderConfig, dialer Dialer, opts ...Option) *Registry {
	r := &Registry{
		providers: slices.Clone(providers),
		dialer:    dialer,
		log:       zerolog.Nop(),
		sessions:  make(map[string]*session),
	}
	for _, o := range opts {
		o(r)
	}
	r.catalog.Store(&toolchat.StaticCatalog{Table: toolchat.NewDispatchTable()})
	return r
}

func (r *Registry) lookup(id string) (toolchat.ProviderConfig, error) {
	for _, p := range r.providers {
		if p.ID == id {
			return p, nil
		}
	}
	return toolchat.ProviderConfig{}, fmt.Errorf("registry: %w: %q", toolchat.ErrUnknownProvider, id)
}

// Enable connects the provider and publishes its capabilities. Enabling an
// enabled provider is a no-op; a provider whose session has ended is dialed
// again. On failure the provider stays disabled.
func (r *Registry) Enable(ctx context.Context, id string) error {
	cfg, err := r.lookup(id)
	if err != nil {
		return err
	}

	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()

	r.mu.Lock()
	prev, ok := r.sessions[id]
	if ok && !prev.ended() {
		r.mu.Unlock()
		return nil
	}
	if ok {
		r.remove(id)
	}
	r.mu.Unlock()
	if ok {
		r.log.Info().Str("provider", id).Msg("replacing ended session")
		_ = prev.client.Close()
	}

	client, err := r.dialer.Dial(ctx, cfg)
	if err != nil {
		r.log.Warn().Err(err).Str("provider", id).Msg("enable failed")
		return fmt.Errorf("registry: enable %s: %w", id, err)
	}
	caps, err := client.ListCapabilities(ctx)
	if err != nil {
		_ = client.Close()
		r.log.Warn().Err(err).Str("provider", id).Msg("enable failed")
		return fmt.Errorf("registry: enable %s: %w", id, err)
	}

	s := &session{client: client, caps: caps}
	if d, ok := client.(doner); ok {
		s.done = d.Done()
	}
	for _, d := range mcp.ToFunctionDeclarations(caps) {
		if err := toolchat.ValidateFunctionName(d.Name); err != nil {
			r.log.Warn().Str("provider", id).Str("capability", d.Name).Msg("skipping capability with invalid name")
			continue
		}
		s.decls = append(s.decls, d)
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.order = append(r.order, id)
	r.rebuild()
	r.mu.Unlock()
	if s.done != nil {
		go r.watch(id, s)
	}
	r.log.Info().Str("provider", id).Int("capabilities", len(s.decls)).Msg("provider enabled")
	return nil
}

// watch disables the provider when its session ends, unless it was disabled
// or replaced first.
func (r *Registry) watch(id string, s *session) {
	<-s.done
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[id] != s {
		return
	}
	r.remove(id)
	r.log.Warn().Str("provider", id).Msg("provider session ended, provider disabled")
}

// remove withdraws an enabled provider and republishes the catalog.
// Caller holds r.mu.
func (r *Registry) remove(id string) {
	delete(r.sessions, id)
	r.order = slices.DeleteFunc(r.order, func(o string) bool { return o == id })
	r.rebuild()
}

// Disable closes the provider's session and withdraws its capabilities.
// Disabling a disabled provider is a no-op.
func (r *Registry) Disable(id string) error {
	if _, err := r.lookup(id); err != nil {
		return err
	}

	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()
	return r.disable(id)
}

// disable removes an enabled provider and closes its session. Caller holds
// r.toggleMu.
func (r *Registry) disable(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		r.remove(id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	r.log.Info().Str("provider", id).Msg("provider disabled")
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("registry: disable %s: %w", id, err)
	}
	return nil
}

// rebuild publishes a new catalog from the enabled sessions. A capability
// name offered by several providers resolves to the last one enabled, and
// its declaration replaces the earlier one in place. Caller holds r.mu.
func (r *Registry) rebuild() {
	table := toolchat.NewDispatchTable()
	var decls []toolchat.FunctionDeclaration
	index := make(map[string]int)
	for _, id := range r.order {
		s := r.sessions[id]
		for _, d := range s.decls {
			prev, replaced := table.Register(d.Name, toolchat.ProviderRef{ProviderID: id, Client: s.client})
			if replaced {
				r.log.Warn().
					Str("capability", d.Name).
					Str("previous", prev.ProviderID).
					Str("provider", id).
					Msg("duplicate capability name, last provider wins")
				decls[index[d.Name]] = d
				continue
			}
			index[d.Name] = len(decls)
			decls = append(decls, d)
		}
	}
	r.catalog.Store(&toolchat.StaticCatalog{Functions: decls, Table: table})
}

// Catalog returns the current catalog snapshot.
func (r *Registry) Catalog() toolchat.Catalog {
	return r.catalog.Load()
}

// IsEnabled reports whether the provider is enabled.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return ok && !s.ended()
}

// Enabled returns the enabled provider IDs in enable order.
func (r *Registry) Enabled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Providers returns the configured providers.
func (r *Registry) Providers() []toolchat.ProviderConfig {
	return slices.Clone(r.providers)
}

// Capabilities returns the capabilities listed by an enabled provider, or
// nil if it is not enabled.
func (r *Registry) Capabilities(id string) []toolchat.Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return slices.Clone(s.caps)
	}
	return nil
}

// Close disables every provider.
func (r *Registry) Close() error {
	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()
	var errs []error
	for _, id := range r.Enabled() {
		if err := r.disable(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
