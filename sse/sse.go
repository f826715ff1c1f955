// Package sse implements [toolchat.Transport] over a server-sent event
// stream: the provider announces a session endpoint on the stream, requests
// are POSTed to that endpoint, and responses arrive either in the POST reply
// or as message events on the stream.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

const (
	defaultSSEPath = "/sse"
	endpointEvent  = "endpoint"
	messageEvent   = "message"
	maxErrorBody   = 4096
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

var sessionPattern = regexp.MustCompile(`sessionId=([^&\s]+)`)

// Interface compliance check.
var _ toolchat.Transport = (*Transport)(nil)

// Transport is a single-use session with one capability provider.
type Transport struct {
	baseURL    *url.URL
	ssePath    string
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
	log        zerolog.Logger

	mu        sync.Mutex
	state     toolchat.TransportState
	sessionID string
	endpoint  string
	cancel    context.CancelFunc
	pending   map[string]chan response
	done      chan struct{}
}

// Option configures a [Transport].
type Option func(*Transport)

// WithHTTPClient sets a custom HTTP client. The client must not impose a
// total request timeout, the event stream stays open for the whole session.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) { t.httpClient = hc }
}

// WithHandshakeTimeout bounds the wait for the endpoint event.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithSSEPath sets the path of the event stream relative to the provider URL.
func WithSSEPath(path string) Option {
	return func(t *Transport) {
		if path != "" {
			t.ssePath = path
		}
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(h map[string]string) Option {
	return func(t *Transport) { t.headers = h }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// New creates a [Transport] for the provider at rawURL.
func New(rawURL string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("sse: invalid provider url %q: %w", rawURL, toolchat.ErrValidation)
	}
	t := &Transport{
		baseURL:    u,
		ssePath:    defaultSSEPath,
		httpClient: http.DefaultClient,
		timeout:    toolchat.DefaultHandshakeTimeout,
		log:        zerolog.Nop(),
		pending:    make(map[string]chan response),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Open connects the event stream and waits for the endpoint event.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	if t.state != toolchat.TransportIdle {
		t.mu.Unlock()
		return fmt.Errorf("sse: open: %w", toolchat.ErrTransportUsed)
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	t.state = toolchat.TransportConnecting
	t.cancel = cancel
	t.mu.Unlock()

	ready := make(chan string, 1)
	failed := make(chan error, 1)
	go t.stream(streamCtx, ready, failed)

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	var data string
	select {
	case data = <-ready:
	case err := <-failed:
		return t.abort(fmt.Errorf("sse: open: %w", err))
	case <-timer.C:
		return t.abort(fmt.Errorf("sse: open: %w", toolchat.ErrConnectTimeout))
	case <-ctx.Done():
		return t.abort(fmt.Errorf("sse: open: %w", ctx.Err()))
	}

	m := sessionPattern.FindStringSubmatch(data)
	if m == nil {
		return t.abort(fmt.Errorf("sse: open: %w: %q", toolchat.ErrSessionParse, data))
	}
	endpoint, err := t.baseURL.Parse(strings.TrimSpace(data))
	if err != nil {
		return t.abort(fmt.Errorf("sse: open: %w: %v", toolchat.ErrSessionParse, err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != toolchat.TransportConnecting {
		return fmt.Errorf("sse: open: %w", toolchat.ErrNotConnected)
	}
	t.state = toolchat.TransportOpen
	t.sessionID = m[1]
	t.endpoint = endpoint.String()
	t.log.Debug().Str("url", t.baseURL.String()).Str("session", t.sessionID).Msg("session opened")
	return nil
}

// abort closes a transport whose handshake failed and returns err.
func (t *Transport) abort(err error) error {
	t.mu.Lock()
	t.shutdown()
	t.mu.Unlock()
	t.log.Debug().Err(err).Str("url", t.baseURL.String()).Msg("handshake failed")
	return err
}

// stream reads the event stream until it ends. The endpoint event is sent
// on ready; failures before it are sent on failed, failures after it drop
// the session.
func (t *Transport) stream(ctx context.Context, ready chan<- string, failed chan<- error) {
	announced := false
	fail := func(err error) {
		if announced {
			t.drop(err)
			return
		}
		failed <- err
	}

	req, err := t.newRequest(ctx, http.MethodGet, t.baseURL.JoinPath(t.ssePath).String(), nil)
	if err != nil {
		fail(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		fail(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fail(httpError(resp))
		return
	}

	r := newEventReader(resp.Body)
	for {
		ev, err := r.next()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			fail(err)
			return
		}
		switch {
		case ev.name == endpointEvent && !announced:
			announced = true
			ready <- ev.data
		case announced && (ev.name == messageEvent || ev.name == ""):
			t.deliver(ev.data)
		}
	}
}

// deliver routes a response received on the stream to its pending call.
func (t *Transport) deliver(data string) {
	var resp response
	if err := codec.UnmarshalFromString(data, &resp); err != nil {
		t.log.Warn().Err(err).Msg("malformed message event")
		return
	}
	id := resp.key()
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.pending[id]
	if !ok {
		t.log.Debug().Str("id", id).Msg("message event for no pending call")
		return
	}
	delete(t.pending, id)
	ch <- resp
}

// drop closes a session whose stream ended.
func (t *Transport) drop(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == toolchat.TransportClosed {
		return
	}
	t.log.Warn().Err(err).Str("session", t.sessionID).Msg("session dropped")
	t.shutdown()
}

// shutdown moves to Closed. Caller holds t.mu.
func (t *Transport) shutdown() {
	if t.state != toolchat.TransportClosed {
		close(t.done)
	}
	t.state = toolchat.TransportClosed
	t.sessionID = ""
	t.endpoint = ""
	if t.cancel != nil {
		t.cancel()
	}
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
}

// Call sends a JSON-RPC request and waits for its result.
func (t *Transport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan response, 1)

	t.mu.Lock()
	if t.state != toolchat.TransportOpen {
		t.mu.Unlock()
		return nil, fmt.Errorf("sse: %s: %w", method, toolchat.ErrNotConnected)
	}
	endpoint := t.endpoint
	t.pending[id] = ch
	t.mu.Unlock()
	defer t.forget(id)

	body, err := codec.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("sse: %s: %w", method, err)
	}
	reply, err := t.post(ctx, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("sse: %s: %w", method, err)
	}

	var resp response
	if len(bytes.TrimSpace(reply)) > 0 && codec.Unmarshal(reply, &resp) == nil && resp.complete() {
		return resp.unwrap(method)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("sse: %s: %w", method, toolchat.ErrNotConnected)
		}
		return resp.unwrap(method)
	case <-ctx.Done():
		return nil, fmt.Errorf("sse: %s: %w", method, ctx.Err())
	}
}

// Notify sends a JSON-RPC notification.
func (t *Transport) Notify(ctx context.Context, method string, params any) error {
	t.mu.Lock()
	if t.state != toolchat.TransportOpen {
		t.mu.Unlock()
		return fmt.Errorf("sse: %s: %w", method, toolchat.ErrNotConnected)
	}
	endpoint := t.endpoint
	t.mu.Unlock()

	body, err := codec.Marshal(request{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("sse: %s: %w", method, err)
	}
	if _, err := t.post(ctx, endpoint, body); err != nil {
		return fmt.Errorf("sse: %s: %w", method, err)
	}
	return nil
}

func (t *Transport) forget(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// post sends body to the session endpoint and returns the reply body.
func (t *Transport) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := t.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (t *Transport) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Close ends the session. It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == toolchat.TransportClosed {
		return nil
	}
	if t.state == toolchat.TransportOpen {
		t.log.Debug().Str("session", t.sessionID).Msg("session closed")
	}
	t.shutdown()
	return nil
}

// State returns the lifecycle state.
func (t *Transport) State() toolchat.TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done returns a channel that is closed when the transport moves to Closed,
// whether by Close, a failed handshake or a dropped stream.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// SessionID returns the session identifier, or "" unless open.
func (t *Transport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      any                `json:"id"`
	Result  json.RawMessage    `json:"result"`
	Error   *toolchat.RPCError `json:"error"`
}

// key returns the response id in the form requests are tracked by.
func (r response) key() string {
	return cast.ToString(r.ID)
}

// complete reports whether r carries a result or an error.
func (r response) complete() bool {
	return r.Result != nil || r.Error != nil
}

func (r response) unwrap(method string) (json.RawMessage, error) {
	if r.Error != nil {
		return nil, fmt.Errorf("sse: %s: %w", method, r.Error)
	}
	return r.Result, nil
}

func httpError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &toolchat.HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
