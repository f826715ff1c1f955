package toolchat

import "context"

// FunctionMode controls whether the model may answer with function calls.
type FunctionMode string

const (
	FunctionModeAuto FunctionMode = "auto" // Model decides; the default.
	FunctionModeAny  FunctionMode = "any"  // Model must call a function.
	FunctionModeNone FunctionMode = "none" // Model must answer in text.
)

// Model is a generative backend. Generate submits the conversation and the
// available functions and returns either text or function-call intents.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request carries one submission to the model.
// The backend uses its own defaults when fields are zero/nil.
type Request struct {
	Model        string // model ID, backend-specific; empty = backend default
	SystemPrompt string
	Messages     []Message
	Functions    []FunctionDeclaration
	FunctionMode FunctionMode // empty = FunctionModeAuto
	MaxTokens    int          // 0 = backend default
	Temperature  *float64     // nil = backend default
}

// Response is the model's answer to one Request.
type Response struct {
	Text          string
	FunctionCalls []FunctionCall
	Usage         Usage
}

// Empty reports whether the response carries neither text nor calls.
func (r *Response) Empty() bool {
	return r == nil || (r.Text == "" && len(r.FunctionCalls) == 0)
}
