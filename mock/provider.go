package mock

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/toolchat"
)

// Interface compliance checks.
var (
	_ toolchat.ProviderClient = (*ProviderClient)(nil)
	_ toolchat.Catalog        = (*Catalog)(nil)
)

// ProviderClient is a test double for toolchat.ProviderClient.
// Set the function fields for the methods you need.
type ProviderClient struct {
	ListCapabilitiesFn func(ctx context.Context) ([]toolchat.Capability, error)
	CallCapabilityFn   func(ctx context.Context, name string, args json.RawMessage) (*toolchat.ToolResult, error)
	CloseFn            func() error
}

// ListCapabilities delegates to ListCapabilitiesFn.
func (p *ProviderClient) ListCapabilities(ctx context.Context) ([]toolchat.Capability, error) {
	return p.ListCapabilitiesFn(ctx)
}

// CallCapability delegates to CallCapabilityFn.
func (p *ProviderClient) CallCapability(ctx context.Context, name string, args json.RawMessage) (*toolchat.ToolResult, error) {
	return p.CallCapabilityFn(ctx, name, args)
}

// Close delegates to CloseFn.
func (p *ProviderClient) Close() error {
	return p.CloseFn()
}

// Catalog is a test double for toolchat.Catalog.
// Set the function fields for the methods you need.
type Catalog struct {
	DeclarationsFn func() []toolchat.FunctionDeclaration
	ResolveFn      func(name string) (toolchat.ProviderRef, error)
}

// Declarations delegates to DeclarationsFn.
func (c *Catalog) Declarations() []toolchat.FunctionDeclaration {
	return c.DeclarationsFn()
}

// Resolve delegates to ResolveFn.
func (c *Catalog) Resolve(name string) (toolchat.ProviderRef, error) {
	return c.ResolveFn(name)
}
