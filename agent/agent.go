// Package agent orchestrates conversation rounds between a Model and the
// capability providers published in a catalog.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/rs/zerolog"
)

// toolFailed is the error text for a tool that failed without saying why.
const toolFailed = "Tool execution failed"

// CatalogSource supplies the catalog snapshot a round runs against.
type CatalogSource interface {
	Catalog() toolchat.Catalog
}

// Orchestrator runs rounds: submit the conversation, run the function calls
// the model asks for, then submit once more for the final answer.
type Orchestrator struct {
	model       toolchat.Model
	source      CatalogSource
	log         zerolog.Logger
	mode        toolchat.FunctionMode
	maxTokens   int
	temperature *float64
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithFunctionMode sets the function calling mode of the first model
// request in a round. The follow-up request always uses FunctionModeNone.
func WithFunctionMode(m toolchat.FunctionMode) Option {
	return func(o *Orchestrator) {
		if m != "" {
			o.mode = m
		}
	}
}

// WithMaxTokens sets the output token limit of model requests.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) { o.maxTokens = n }
}

// WithTemperature sets the sampling temperature of model requests.
func WithTemperature(t *float64) Option {
	return func(o *Orchestrator) { o.temperature = t }
}

// New creates an [Orchestrator].
func New(model toolchat.Model, source CatalogSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:  model,
		source: source,
		log:    zerolog.Nop(),
		mode:   toolchat.FunctionModeAuto,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitOption configures a single Submit invocation.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	onEvent func(toolchat.Event)
	model   string
}

// WithEventHandler sets a callback that receives progress events during the
// round. If nil or not set, events are silently discarded.
func WithEventHandler(h func(toolchat.Event)) SubmitOption {
	return func(c *submitConfig) {
		c.onEvent = h
	}
}

// WithModel sets the model ID for requests during this round.
// Empty string means the backend uses its default model.
func WithModel(model string) SubmitOption {
	return func(c *submitConfig) {
		c.model = model
	}
}

func (c *submitConfig) emit(e toolchat.Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

// Submit runs one round for text and returns the model's final answer.
//
// On success the user turn and every turn of the round are appended to conv.
// On failure only the user turn and an ErrorMessage are appended, so the
// conversation never ends with function calls that have no results. Blank
// text is rejected with ErrValidation and leaves conv untouched.
func (o *Orchestrator) Submit(ctx context.Context, conv *toolchat.Conversation, text string, opts ...SubmitOption) (string, error) {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := toolchat.ValidateMessage(toolchat.UserMessage{Text: strings.TrimSpace(text)}); err != nil {
		return "", fmt.Errorf("agent: %w", err)
	}
	user := toolchat.UserMessage{Text: text, Timestamp: time.Now()}
	reply, staged, err := o.round(ctx, conv, user, &cfg)
	if err != nil {
		o.log.Warn().Err(err).Str("conversation", conv.ID).Msg("round aborted")
		conv.Append(user, toolchat.ErrorMessage{Text: errorText(err), Timestamp: time.Now()})
		return "", err
	}
	conv.Append(staged...)
	cfg.emit(toolchat.EventModelText{Text: reply})
	return reply, nil
}

// round runs the protocol and returns the reply with the turns to commit.
func (o *Orchestrator) round(ctx context.Context, conv *toolchat.Conversation, user toolchat.UserMessage, cfg *submitConfig) (string, []toolchat.Message, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	cat := o.source.Catalog()
	staged := []toolchat.Message{user}
	req := toolchat.Request{
		Model:        cfg.model,
		SystemPrompt: conv.SystemPrompt,
		Messages:     history(conv.Messages, staged),
		Functions:    cat.Declarations(),
		FunctionMode: o.mode,
		MaxTokens:    o.maxTokens,
		Temperature:  o.temperature,
	}

	resp, err := o.generate(ctx, req)
	if err != nil {
		return "", nil, err
	}
	if len(resp.FunctionCalls) == 0 {
		staged = append(staged, toolchat.ModelMessage{Text: resp.Text, Usage: resp.Usage, Timestamp: time.Now()})
		return resp.Text, staged, nil
	}

	// Every call must resolve before any provider is contacted.
	refs := make([]toolchat.ProviderRef, len(resp.FunctionCalls))
	for i, call := range resp.FunctionCalls {
		ref, err := cat.Resolve(call.Name)
		if err != nil {
			return "", nil, fmt.Errorf("agent: %w", err)
		}
		refs[i] = ref
	}

	staged = append(staged, toolchat.ModelMessage{
		Text:      resp.Text,
		Calls:     resp.FunctionCalls,
		Usage:     resp.Usage,
		Timestamp: time.Now(),
	})
	for i, call := range resp.FunctionCalls {
		cfg.emit(toolchat.EventToolCall{ProviderID: refs[i].ProviderID, Call: call})
		result := o.invoke(ctx, refs[i], call)
		cfg.emit(toolchat.EventToolResult{CallID: call.ID, Result: result})
		staged = append(staged, toolchat.ToolResultMessage{CallID: call.ID, Result: result, Timestamp: time.Now()})
	}

	req.Messages = history(conv.Messages, staged)
	req.FunctionMode = toolchat.FunctionModeNone
	follow, err := o.generate(ctx, req)
	if err != nil {
		return "", nil, err
	}
	if follow.Text == "" {
		return "", nil, fmt.Errorf("agent: %w", toolchat.ErrToolRoundLimit)
	}
	if len(follow.FunctionCalls) > 0 {
		o.log.Debug().Int("calls", len(follow.FunctionCalls)).Msg("dropping function calls from follow-up response")
	}
	staged = append(staged, toolchat.ModelMessage{Text: follow.Text, Usage: follow.Usage, Timestamp: time.Now()})
	return follow.Text, staged, nil
}

func (o *Orchestrator) generate(ctx context.Context, req toolchat.Request) (*toolchat.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	resp, err := o.model.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agent: generate: %w", err)
	}
	if resp.Empty() {
		return nil, fmt.Errorf("agent: %w", toolchat.ErrEmptyResponse)
	}
	o.log.Debug().
		Str("mode", string(req.FunctionMode)).
		Int("functions", len(req.Functions)).
		Int("calls", len(resp.FunctionCalls)).
		Int("input_tokens", resp.Usage.InputTokens).
		Int("output_tokens", resp.Usage.OutputTokens).
		Msg("model round")
	return resp, nil
}

// invoke runs one call. Failures are captured in the result.
func (o *Orchestrator) invoke(ctx context.Context, ref toolchat.ProviderRef, call toolchat.FunctionCall) toolchat.ToolInvocationResult {
	log := o.log.With().Str("provider", ref.ProviderID).Str("capability", call.Name).Logger()
	res, err := ref.Client.CallCapability(ctx, call.Name, call.Arguments)
	if err != nil {
		log.Warn().Err(err).Msg("tool invocation failed")
		return toolchat.Failed(call.Name, err.Error())
	}
	if res.IsError {
		msg := res.Content
		if msg == "" {
			msg = toolFailed
		}
		log.Info().Str("error", msg).Msg("tool reported failure")
		return toolchat.Failed(call.Name, msg)
	}
	log.Info().Int("bytes", len(res.Content)).Msg("tool invoked")
	return toolchat.Succeeded(call.Name, res.Content)
}

// history returns the turns to resubmit: the committed conversation followed
// by the turns staged in this round, without display-only error turns.
func history(committed, staged []toolchat.Message) []toolchat.Message {
	msgs := make([]toolchat.Message, 0, len(committed)+len(staged))
	for _, m := range committed {
		if _, ok := m.(toolchat.ErrorMessage); ok {
			continue
		}
		msgs = append(msgs, m)
	}
	return append(msgs, staged...)
}

// errorText is the user-visible text of a round failure.
func errorText(err error) string {
	switch {
	case errors.Is(err, toolchat.ErrUnknownTool):
		return "The model asked for a tool that is not available: " + err.Error()
	case errors.Is(err, toolchat.ErrEmptyResponse):
		return "The model returned an empty response."
	case errors.Is(err, toolchat.ErrToolRoundLimit):
		return "The model asked for more tools after the follow-up round."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	}
	return "Error: " + err.Error()
}
