package toolchat

// Event is a sealed interface representing progress within one
// orchestration round. Events are informational; failures are reported
// through returned errors.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventToolCall signals that a resolved function call is about to run.
type EventToolCall struct {
	ProviderID string
	Call       FunctionCall
}

func (EventToolCall) event() {}

// EventToolResult carries the outcome of a function call.
type EventToolResult struct {
	CallID string
	Result ToolInvocationResult
}

func (EventToolResult) event() {}

// EventModelText carries the final text of a round.
type EventModelText struct {
	Text string
}

func (EventModelText) event() {}

// Interface compliance checks.
var (
	_ Event = EventToolCall{}
	_ Event = EventToolResult{}
	_ Event = EventModelText{}
)
