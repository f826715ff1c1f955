package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/toolchat"
	"github.com/spf13/cast"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ toolchat.Model = (*Client)(nil)

// Client implements [toolchat.Model] for the Google Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	baseURL string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.0-flash.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{model: defaultModel}
	for _, o := range opts {
		o(c)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.client = gc
	return c, nil
}

// Generate sends the conversation to the Gemini API.
func (c *Client) Generate(ctx context.Context, req toolchat.Request) (*toolchat.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	resp, err := c.client.Models.GenerateContent(ctx, model, ConvertMessages(req.Messages), buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return ParseResponse(resp)
}

func buildConfig(req toolchat.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Tools:           ConvertFunctions(req.Functions),
	}
	if len(config.Tools) > 0 {
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: convertMode(req.FunctionMode)},
		}
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}

	return config
}

func convertMode(m toolchat.FunctionMode) genai.FunctionCallingConfigMode {
	switch m {
	case toolchat.FunctionModeAny:
		return genai.FunctionCallingConfigModeAny
	case toolchat.FunctionModeNone:
		return genai.FunctionCallingConfigModeNone
	default:
		return genai.FunctionCallingConfigModeAuto
	}
}

// ConvertMessages converts toolchat Messages to genai Contents. Consecutive
// tool results are grouped into one user turn, and error turns are skipped.
// Exported for testing.
func ConvertMessages(msgs []toolchat.Message) []*genai.Content {
	var result []*genai.Content
	var pending *genai.Content // open group of function responses
	for _, msg := range msgs {
		if m, ok := msg.(toolchat.ToolResultMessage); ok {
			if pending == nil {
				pending = &genai.Content{Role: "user"}
				result = append(result, pending)
			}
			pending.Parts = append(pending.Parts, &genai.Part{FunctionResponse: functionResponse(m)})
			continue
		}
		pending = nil
		switch m := msg.(type) {
		case toolchat.UserMessage:
			result = append(result, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Text}},
			})
		case toolchat.ModelMessage:
			var parts []*genai.Part
			if m.Text != "" {
				parts = append(parts, &genai.Part{Text: m.Text})
			}
			for _, call := range m.Calls {
				// Arguments is json.RawMessage, always valid JSON from domain types.
				var args map[string]any
				_ = json.Unmarshal(call.Arguments, &args)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args},
				})
			}
			result = append(result, &genai.Content{Role: "model", Parts: parts})
		}
	}
	return result
}

func functionResponse(m toolchat.ToolResultMessage) *genai.FunctionResponse {
	var response map[string]any
	if m.Result.Success {
		response = map[string]any{"output": m.Result.Text()}
	} else {
		response = map[string]any{"error": m.Result.Text()}
	}
	return &genai.FunctionResponse{
		ID:       m.CallID,
		Name:     m.Result.CapabilityName,
		Response: response,
	}
}

// ConvertFunctions converts function declarations to genai Tools.
// Exported for testing.
func ConvertFunctions(fns []toolchat.FunctionDeclaration) []*genai.Tool {
	if len(fns) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(fns))
	for i, fn := range fns {
		decls[i] = &genai.FunctionDeclaration{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  ConvertSchema(fn.Parameters),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ConvertSchema converts a toolchat Schema to a genai Schema.
// Exported for testing.
func ConvertSchema(s *toolchat.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:             genai.Type(strings.ToUpper(s.Type)),
		Format:           s.Format,
		Description:      s.Description,
		Nullable:         s.Nullable,
		Default:          s.Default,
		Example:          s.Example,
		Pattern:          s.Pattern,
		PropertyOrdering: s.PropertyOrdering,
		Required:         s.Required,
		Items:            ConvertSchema(s.Items),
		MinItems:         s.MinItems,
		MaxItems:         s.MaxItems,
		MinLength:        s.MinLength,
		MaxLength:        s.MaxLength,
		MinProperties:    s.MinProperties,
		MaxProperties:    s.MaxProperties,
		Minimum:          s.Minimum,
		Maximum:          s.Maximum,
	}
	for _, v := range s.Enum {
		out.Enum = append(out.Enum, cast.ToString(v))
	}
	for _, member := range s.AnyOf {
		out.AnyOf = append(out.AnyOf, ConvertSchema(member))
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = ConvertSchema(p)
		}
	}
	return out
}

// ParseResponse converts a genai response to a toolchat Response. Thought
// parts are skipped. Exported for testing.
func ParseResponse(resp *genai.GenerateContentResponse) (*toolchat.Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("gemini: nil response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}

	out := &toolchat.Response{}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = toolchat.Usage{
			InputTokens:  max(int(u.PromptTokenCount)-int(u.CachedContentTokenCount), 0),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if fc := part.FunctionCall; fc != nil {
			args := json.RawMessage(`{}`)
			if len(fc.Args) > 0 {
				b, err := json.Marshal(fc.Args)
				if err != nil {
					return nil, fmt.Errorf("gemini: marshal args for %s: %w", fc.Name, err)
				}
				args = b
			}
			out.FunctionCalls = append(out.FunctionCalls, toolchat.FunctionCall{ID: fc.ID, Name: fc.Name, Arguments: args})
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = text.String()
	return out, nil
}
