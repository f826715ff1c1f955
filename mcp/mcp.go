// Package mcp implements [toolchat.ProviderClient] for Model Context Protocol
// servers on top of a [toolchat.Transport], and projects MCP tool schemas onto
// model function declarations.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/toolchat"
	jsoniter "github.com/json-iterator/go"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

const (
	defaultClientName    = "toolchat"
	defaultClientVersion = "1.0.0"

	methodInitialized = "notifications/initialized"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Interface compliance check.
var _ toolchat.ProviderClient = (*Client)(nil)

// Client speaks MCP with one provider session.
type Client struct {
	transport toolchat.Transport
	info      mcpgo.Implementation
	log       zerolog.Logger
	server    mcpgo.Implementation
}

// Option configures a [Client].
type Option func(*Client)

// WithClientInfo sets the name and version announced during initialize.
func WithClientInfo(name, version string) Option {
	return func(c *Client) { c.info = mcpgo.Implementation{Name: name, Version: version} }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a [Client] over t. Call Connect before use.
func New(t toolchat.Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		info:      mcpgo.Implementation{Name: defaultClientName, Version: defaultClientVersion},
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect opens the transport and performs the initialize handshake.
// The transport is closed if any step fails.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.Open(ctx); err != nil {
		return fmt.Errorf("mcp: connect: %w", err)
	}
	params := mcpgo.InitializeParams{
		ProtocolVersion: mcpgo.LATEST_PROTOCOL_VERSION,
		ClientInfo:      c.info,
		Capabilities:    mcpgo.ClientCapabilities{},
	}
	raw, err := c.transport.Call(ctx, string(mcpgo.MethodInitialize), params)
	if err != nil {
		_ = c.transport.Close()
		return fmt.Errorf("mcp: initialize: %w", err)
	}
	var res mcpgo.InitializeResult
	if err := codec.Unmarshal(raw, &res); err != nil {
		_ = c.transport.Close()
		return fmt.Errorf("mcp: initialize: decode result: %w", err)
	}
	if err := c.transport.Notify(ctx, methodInitialized, nil); err != nil {
		_ = c.transport.Close()
		return fmt.Errorf("mcp: initialize: %w", err)
	}
	c.server = res.ServerInfo
	c.log.Debug().
		Str("server", res.ServerInfo.Name).
		Str("version", res.ServerInfo.Version).
		Str("protocol", res.ProtocolVersion).
		Msg("initialized")
	return nil
}

// ServerInfo returns the server identity reported during initialize.
func (c *Client) ServerInfo() mcpgo.Implementation {
	return c.server
}

// ListCapabilities lists the server's tools, following pagination.
func (c *Client) ListCapabilities(ctx context.Context) ([]toolchat.Capability, error) {
	caps := []toolchat.Capability{}
	var cursor mcpgo.Cursor
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}
		raw, err := c.transport.Call(ctx, string(mcpgo.MethodToolsList), params)
		if err != nil {
			return nil, fmt.Errorf("mcp: list tools: %w", err)
		}
		var res mcpgo.ListToolsResult
		if err := codec.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("mcp: list tools: decode result: %w", err)
		}
		for _, tool := range res.Tools {
			caps = append(caps, capability(tool))
		}
		if res.NextCursor == "" || res.NextCursor == cursor {
			return caps, nil
		}
		cursor = res.NextCursor
	}
}

func capability(tool mcpgo.Tool) toolchat.Capability {
	schema := map[string]any{}
	if tool.InputSchema.Type != "" {
		schema["type"] = tool.InputSchema.Type
	}
	if tool.InputSchema.Properties != nil {
		schema["properties"] = tool.InputSchema.Properties
	}
	if len(tool.InputSchema.Required) > 0 {
		schema["required"] = tool.InputSchema.Required
	}
	return toolchat.Capability{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: schema,
	}
}

// CallCapability invokes a tool. Transport and protocol failures are
// returned as errors; a tool that reports isError yields IsError.
func (c *Client) CallCapability(ctx context.Context, name string, args json.RawMessage) (*toolchat.ToolResult, error) {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	params := map[string]any{"name": name, "arguments": args}
	raw, err := c.transport.Call(ctx, string(mcpgo.MethodToolsCall), params)
	if err != nil {
		return nil, fmt.Errorf("mcp: call %s: %w", name, err)
	}
	res, err := decodeToolResult(raw)
	if err != nil {
		return nil, fmt.Errorf("mcp: call %s: %w", name, err)
	}
	return res, nil
}

// decodeToolResult flattens a tools/call result to text. A result without a
// content array is returned as its raw JSON.
func decodeToolResult(raw json.RawMessage) (*toolchat.ToolResult, error) {
	var res struct {
		Content []json.RawMessage `json:"content"`
		IsError bool              `json:"isError"`
	}
	if err := codec.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if res.Content == nil {
		return &toolchat.ToolResult{Content: strings.TrimSpace(string(raw)), IsError: res.IsError}, nil
	}
	parts := make([]string, 0, len(res.Content))
	for _, item := range res.Content {
		var head struct {
			Type string `json:"type"`
		}
		if err := codec.Unmarshal(item, &head); err != nil {
			return nil, fmt.Errorf("decode content: %w", err)
		}
		switch head.Type {
		case "text":
			var text mcpgo.TextContent
			if err := codec.Unmarshal(item, &text); err != nil {
				return nil, fmt.Errorf("decode text content: %w", err)
			}
			parts = append(parts, text.Text)
		case "image":
			var image mcpgo.ImageContent
			if err := codec.Unmarshal(item, &image); err != nil {
				return nil, fmt.Errorf("decode image content: %w", err)
			}
			parts = append(parts, fmt.Sprintf("[Image: %s]", image.MIMEType))
		default:
			parts = append(parts, fmt.Sprintf("[%s content]", head.Type))
		}
	}
	return &toolchat.ToolResult{
		Content: strings.TrimSpace(strings.Join(parts, "\n")),
		IsError: res.IsError,
	}, nil
}

// Done returns a channel closed when the session ends, or nil if the
// transport cannot report that.
func (c *Client) Done() <-chan struct{} {
	if d, ok := c.transport.(interface{ Done() <-chan struct{} }); ok {
		return d.Done()
	}
	return nil
}

// Close closes the session.
func (c *Client) Close() error {
	return c.transport.Close()
}
