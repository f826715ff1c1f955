package toolchat

import (
	"context"
	"encoding/json"
)

// TransportState is the lifecycle state of a Transport.
// Transitions only move forward: Idle -> Connecting -> Open -> Closed.
type TransportState int

const (
	TransportIdle       TransportState = iota // Constructed, Open not called.
	TransportConnecting                       // Waiting for the session event.
	TransportOpen                             // Session ID assigned; calls allowed.
	TransportClosed                           // Closed, failed or dropped. Terminal.
)

func (s TransportState) String() string {
	switch s {
	case TransportIdle:
		return "idle"
	case TransportConnecting:
		return "connecting"
	case TransportOpen:
		return "open"
	case TransportClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is an event-streamed session with one capability provider.
//
// Open performs the handshake and assigns the session ID. It fails with
// ErrConnectTimeout or ErrSessionParse; the transport is Closed afterwards.
// A Transport is single use: Open on a used transport returns
// ErrTransportUsed, and reconnecting requires a new Transport.
//
// Call issues a request scoped to the session and returns the JSON-RPC
// result. It fails with ErrNotConnected unless the transport is Open and
// with an *HTTPError on non-success status.
//
// Close is idempotent and clears the session ID.
type Transport interface {
	Open(ctx context.Context) error
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	Notify(ctx context.Context, method string, params any) error
	Close() error
	State() TransportState
	SessionID() string
}
