package toolchat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request, message or config failed validation.
	ErrValidation = errors.New("validation error")

	// ErrConnectTimeout indicates the provider did not emit its session event
	// within the handshake timeout.
	ErrConnectTimeout = errors.New("connect timeout: no session event received")

	// ErrSessionParse indicates the session event arrived but carried no
	// session identifier.
	ErrSessionParse = errors.New("connect: session identifier not found")

	// ErrNotConnected indicates a request on a transport that is not open.
	ErrNotConnected = errors.New("transport not connected")

	// ErrHTTPFailure indicates a non-success HTTP status. See HTTPError.
	ErrHTTPFailure = errors.New("http failure")

	// ErrTransportUsed indicates Open on a transport that was already opened.
	// Reconnecting requires a new transport.
	ErrTransportUsed = errors.New("transport already used")

	// ErrUnknownTool indicates a function call naming no registered capability.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrEmptyResponse indicates the model returned neither text nor a
	// function call.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrProviderError indicates the capability provider reported a failure.
	// See RPCError.
	ErrProviderError = errors.New("provider error")

	// ErrToolRoundLimit indicates the model asked for more function calls in
	// the follow-up round. Only one follow-up round is performed.
	ErrToolRoundLimit = errors.New("tool round limit reached")

	// ErrUnknownProvider indicates a provider ID missing from the config.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrBusy indicates an operation rejected because another is in flight.
	ErrBusy = errors.New("operation already in flight")
)

// HTTPError is a non-2xx response from a capability provider.
// It matches ErrHTTPFailure with errors.Is.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http failure: %s", e.Status)
	}
	return fmt.Sprintf("http failure: %s: %s", e.Status, e.Body)
}

// Is reports whether target is ErrHTTPFailure.
func (e *HTTPError) Is(target error) bool { return target == ErrHTTPFailure }

// RPCError is a JSON-RPC error object returned by a capability provider.
// It matches ErrProviderError with errors.Is.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Is reports whether target is ErrProviderError.
func (e *RPCError) Is(target error) bool { return target == ErrProviderError }
