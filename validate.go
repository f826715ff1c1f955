package toolchat

import (
	"fmt"
	"regexp"
)

// functionName matches names model backends accept for declared functions.
var functionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.\-]{0,63}$`)

// Validate checks universal constraints on Request.
// Backend implementations may apply additional backend-specific validation.
func (r Request) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	switch r.FunctionMode {
	case "", FunctionModeAuto, FunctionModeAny, FunctionModeNone:
	default:
		return fmt.Errorf("unknown function mode %q: %w", r.FunctionMode, ErrValidation)
	}
	seen := make(map[string]bool, len(r.Functions))
	for _, fn := range r.Functions {
		if err := ValidateFunctionName(fn.Name); err != nil {
			return err
		}
		if seen[fn.Name] {
			return fmt.Errorf("duplicate function %q: %w", fn.Name, ErrValidation)
		}
		seen[fn.Name] = true
	}
	for i, msg := range r.Messages {
		if err := ValidateMessage(msg); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateFunctionName checks that name can be declared to a model.
func ValidateFunctionName(name string) error {
	if !functionName.MatchString(name) {
		return fmt.Errorf("invalid function name %q: %w", name, ErrValidation)
	}
	return nil
}

// ValidateMessage checks that a message is well formed for its role.
func ValidateMessage(msg Message) error {
	switch m := msg.(type) {
	case UserMessage:
		if m.Text == "" {
			return fmt.Errorf("empty %s message: %w", m.Role(), ErrValidation)
		}
	case ModelMessage:
		for _, c := range m.Calls {
			if c.Name == "" {
				return fmt.Errorf("function call without name in %s message: %w", m.Role(), ErrValidation)
			}
		}
	case ToolResultMessage:
		r := m.Result
		if (r.Content == nil) == (r.Error == nil) {
			return fmt.Errorf("tool result %q must carry exactly one of content and error: %w", r.CapabilityName, ErrValidation)
		}
		if !r.Success && r.Content != nil {
			return fmt.Errorf("failed tool result %q carries content: %w", r.CapabilityName, ErrValidation)
		}
	case ErrorMessage:
	default:
		return fmt.Errorf("unknown message type %T: %w", msg, ErrValidation)
	}
	return nil
}
