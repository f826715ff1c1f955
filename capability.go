package toolchat

import (
	"context"
	"encoding/json"
)

// Capability is a tool exposed by a capability provider, as listed for one
// session. It is a read-only snapshot; a reconnect lists capabilities again.
type Capability struct {
	Name        string
	Description string
	// InputSchema is the provider's parameter schema as decoded from the
	// wire. It is projected onto Schema before reaching the model.
	InputSchema map[string]any
}

// FunctionDeclaration is the model-facing description of a Capability.
type FunctionDeclaration struct {
	Name        string
	Description string
	Parameters  *Schema
}

// ToolResult is what a provider returned for one capability invocation.
// IsError reports a provider-side failure of the tool itself.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInvocationResult is the outcome of one function call as fed back to
// the model. Exactly one of Content and Error is set; Content is nil
// whenever Success is false.
type ToolInvocationResult struct {
	CapabilityName string
	Success        bool
	Content        *string
	Error          *string
}

// Succeeded returns a successful ToolInvocationResult.
func Succeeded(name, content string) ToolInvocationResult {
	return ToolInvocationResult{CapabilityName: name, Success: true, Content: &content}
}

// Failed returns a failed ToolInvocationResult.
func Failed(name, msg string) ToolInvocationResult {
	return ToolInvocationResult{CapabilityName: name, Error: &msg}
}

// Text returns the content or the error message, whichever is set.
func (r ToolInvocationResult) Text() string {
	switch {
	case r.Content != nil:
		return *r.Content
	case r.Error != nil:
		return *r.Error
	}
	return ""
}

// ProviderClient is a connected capability provider bound to one session.
// CallCapability returns an error for infrastructure failures (transport,
// protocol); ToolResult.IsError carries tool-reported failures.
type ProviderClient interface {
	ListCapabilities(ctx context.Context) ([]Capability, error)
	CallCapability(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error)
	Close() error
}
