package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fwojciec/toolchat"
	openai "github.com/sashabaranov/go-openai"
)

// Interface compliance check.
var _ toolchat.Model = (*Client)(nil)

// Client implements [toolchat.Model] using the chat completions endpoint.
type Client struct {
	client *openai.Client
	model  string
}

type settings struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*settings)

// WithModel sets the model ID. Default is gpt-4o-mini.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithBaseURL sets the API base URL, e.g. http://localhost:11434/v1.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// New creates a new [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	s := settings{model: defaultModel}
	for _, o := range opts {
		o(&s)
	}
	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	if s.httpClient != nil {
		cfg.HTTPClient = s.httpClient
	}
	return &Client{client: openai.NewClientWithConfig(cfg), model: s.model}
}

// Generate sends the conversation to the chat completions endpoint.
func (c *Client) Generate(ctx context.Context, req toolchat.Request) (*toolchat.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	resp, err := c.client.CreateChatCompletion(ctx, BuildRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return ParseResponse(resp)
}

// BuildRequest converts a toolchat Request to a chat completion request.
// Exported for testing.
func BuildRequest(model string, req toolchat.Request) openai.ChatCompletionRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	out := openai.ChatCompletionRequest{
		Model:               model,
		MaxCompletionTokens: maxTokens,
		Tools:               ConvertFunctions(req.Functions),
	}
	if req.SystemPrompt != "" {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	out.Messages = append(out.Messages, ConvertMessages(req.Messages)...)
	if len(out.Tools) > 0 {
		out.ToolChoice = toolChoice(req.FunctionMode)
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	return out
}

func toolChoice(m toolchat.FunctionMode) string {
	switch m {
	case toolchat.FunctionModeAny:
		return "required"
	case toolchat.FunctionModeNone:
		return "none"
	default:
		return "auto"
	}
}

// ConvertMessages converts toolchat Messages to chat completion messages.
// Error turns are skipped. Exported for testing.
func ConvertMessages(msgs []toolchat.Message) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	for _, msg := range msgs {
		switch m := msg.(type) {
		case toolchat.UserMessage:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Text,
			})
		case toolchat.ModelMessage:
			cm := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Text,
			}
			for _, call := range m.Calls {
				cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
			out = append(out, cm)
		case toolchat.ToolResultMessage:
			content := m.Result.Text()
			if !m.Result.Success {
				content = "Error: " + content
			}
			// Tool messages must carry content.
			if content == "" {
				content = "{}"
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				Name:       m.Result.CapabilityName,
				ToolCallID: m.CallID,
			})
		}
	}
	return out
}

// ConvertFunctions converts function declarations to chat completion tools.
// Exported for testing.
func ConvertFunctions(fns []toolchat.FunctionDeclaration) []openai.Tool {
	if len(fns) == 0 {
		return nil
	}
	tools := make([]openai.Tool, len(fns))
	for i, fn := range fns {
		var params any = emptyObject
		if fn.Parameters != nil {
			params = fn.Parameters
		}
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  params,
			},
		}
	}
	return tools
}

var emptyObject = map[string]any{"type": "object", "properties": map[string]any{}}

// ParseResponse converts a chat completion response to a toolchat Response.
// Exported for testing.
func ParseResponse(resp openai.ChatCompletionResponse) (*toolchat.Response, error) {
	out := &toolchat.Response{
		Usage: toolchat.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) == 0 {
		return out, nil
	}
	msg := resp.Choices[0].Message
	out.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		args := json.RawMessage(`{}`)
		if tc.Function.Arguments != "" {
			if !json.Valid([]byte(tc.Function.Arguments)) {
				return nil, fmt.Errorf("openai: invalid arguments for %s", tc.Function.Name)
			}
			args = json.RawMessage(tc.Function.Arguments)
		}
		out.FunctionCalls = append(out.FunctionCalls, toolchat.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}
