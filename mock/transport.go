package mock

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/toolchat"
)

// Interface compliance check.
var _ toolchat.Transport = (*Transport)(nil)

// Transport is a test double for toolchat.Transport.
// Set the function fields for the methods you need.
type Transport struct {
	OpenFn      func(ctx context.Context) error
	CallFn      func(ctx context.Context, method string, params any) (json.RawMessage, error)
	NotifyFn    func(ctx context.Context, method string, params any) error
	CloseFn     func() error
	StateFn     func() toolchat.TransportState
	SessionIDFn func() string
}

// Open delegates to OpenFn.
func (t *Transport) Open(ctx context.Context) error {
	return t.OpenFn(ctx)
}

// Call delegates to CallFn.
func (t *Transport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return t.CallFn(ctx, method, params)
}

// Notify delegates to NotifyFn.
func (t *Transport) Notify(ctx context.Context, method string, params any) error {
	return t.NotifyFn(ctx, method, params)
}

// Close delegates to CloseFn.
func (t *Transport) Close() error {
	return t.CloseFn()
}

// State delegates to StateFn.
func (t *Transport) State() toolchat.TransportState {
	return t.StateFn()
}

// SessionID delegates to SessionIDFn.
func (t *Transport) SessionID() string {
	return t.SessionIDFn()
}
