package toolchat

import (
	"encoding/json"
	"time"
)

// Message is a sealed interface representing a conversation turn.
// The unexported marker method prevents external implementations.
// Role() returns the message's role without requiring a type switch.
type Message interface {
	isMessage()
	Role() Role
}

// UserMessage represents text typed by the user.
type UserMessage struct {
	Text      string
	Timestamp time.Time
}

func (UserMessage) isMessage() {}

// Role returns RoleUser.
func (UserMessage) Role() Role { return RoleUser }

// ModelMessage represents a model turn: final text, function-call intents,
// or both.
type ModelMessage struct {
	Text      string
	Calls     []FunctionCall
	Usage     Usage
	Timestamp time.Time
}

func (ModelMessage) isMessage() {}

// Role returns RoleModel.
func (ModelMessage) Role() Role { return RoleModel }

// ToolResultMessage is a tool-turn carrying the outcome of one function call.
// CallID correlates it with the FunctionCall that produced it.
type ToolResultMessage struct {
	CallID    string
	Result    ToolInvocationResult
	Timestamp time.Time
}

func (ToolResultMessage) isMessage() {}

// Role returns RoleTool.
func (ToolResultMessage) Role() Role { return RoleTool }

// ErrorMessage is a user-visible failure of a whole round. Model backends
// skip it when building requests.
type ErrorMessage struct {
	Text      string
	Timestamp time.Time
}

func (ErrorMessage) isMessage() {}

// Role returns RoleError.
func (ErrorMessage) Role() Role { return RoleError }

// FunctionCall is a function-call intent emitted by the model.
// ID may be empty for backends that do not assign call IDs.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Interface compliance checks.
var (
	_ Message = UserMessage{}
	_ Message = ModelMessage{}
	_ Message = ToolResultMessage{}
	_ Message = ErrorMessage{}
)
