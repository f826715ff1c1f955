package registry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/mock"
	"github.com/fwojciec/toolchat/registry"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var providers = []toolchat.ProviderConfig{
	{ID: "figma", Name: "Figma", URL: "http://localhost:3333"},
	{ID: "docs", Name: "Docs", URL: "http://localhost:4444"},
}

// fakeClient is a provider client offering fixed capabilities.
type fakeClient struct {
	mock.ProviderClient
	closed atomic.Int32
}

func newFakeClient(names ...string) *fakeClient {
	c := &fakeClient{}
	caps := make([]toolchat.Capability, len(names))
	for i, n := range names {
		caps[i] = toolchat.Capability{Name: n, Description: n + " tool"}
	}
	c.ListCapabilitiesFn = func(ctx context.Context) ([]toolchat.Capability, error) { return caps, nil }
	c.CallCapabilityFn = func(ctx context.Context, name string, args json.RawMessage) (*toolchat.ToolResult, error) {
		return &toolchat.ToolResult{Content: name}, nil
	}
	c.CloseFn = func() error {
		c.closed.Add(1)
		return nil
	}
	return c
}

// dialer hands out clients per provider ID and counts dials.
type dialer struct {
	mu      sync.Mutex
	clients map[string]*fakeClient
	err     error
	dials   map[string]int
}

func (d *dialer) Dial(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dials == nil {
		d.dials = make(map[string]int)
	}
	d.dials[cfg.ID]++
	if d.err != nil {
		return nil, d.err
	}
	return d.clients[cfg.ID], nil
}

func (d *dialer) count(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[id]
}

func names(decls []toolchat.FunctionDeclaration) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Name
	}
	return out
}

func TestRegistry_Enable(t *testing.T) {
	t.Parallel()
	figma := newFakeClient("get_nodes", "get_styles")
	d := &dialer{clients: map[string]*fakeClient{"figma": figma}}
	r := registry.New(providers, d)

	assert.False(t, r.IsEnabled("figma"))
	assert.Empty(t, r.Catalog().Declarations())

	require.NoError(t, r.Enable(context.Background(), "figma"))
	assert.True(t, r.IsEnabled("figma"))
	assert.Equal(t, []string{"figma"}, r.Enabled())
	assert.Len(t, r.Capabilities("figma"), 2)

	cat := r.Catalog()
	assert.Equal(t, []string{"get_nodes", "get_styles"}, names(cat.Declarations()))
	ref, err := cat.Resolve("get_nodes")
	require.NoError(t, err)
	assert.Equal(t, "figma", ref.ProviderID)
	assert.Same(t, figma, ref.Client)
}

func TestRegistry_EnableIsIdempotent(t *testing.T) {
	t.Parallel()
	d := &dialer{clients: map[string]*fakeClient{"figma": newFakeClient("get_nodes")}}
	r := registry.New(providers, d)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Enable(context.Background(), "figma"))
		}()
	}
	wg.Wait()
	require.NoError(t, r.Enable(context.Background(), "figma"))

	assert.Equal(t, 1, d.count("figma"))
	assert.Equal(t, []string{"figma"}, r.Enabled())
	assert.Equal(t, []string{"get_nodes"}, names(r.Catalog().Declarations()))
}

func TestRegistry_EnableFailure(t *testing.T) {
	t.Parallel()

	t.Run("dial error leaves provider disabled", func(t *testing.T) {
		t.Parallel()
		d := &dialer{err: toolchat.ErrConnectTimeout}
		r := registry.New(providers, d)

		err := r.Enable(context.Background(), "figma")
		assert.ErrorIs(t, err, toolchat.ErrConnectTimeout)
		assert.False(t, r.IsEnabled("figma"))
		assert.Empty(t, r.Enabled())
		assert.Empty(t, r.Catalog().Declarations())
	})

	t.Run("list error closes client", func(t *testing.T) {
		t.Parallel()
		c := newFakeClient()
		c.ListCapabilitiesFn = func(ctx context.Context) ([]toolchat.Capability, error) {
			return nil, toolchat.ErrNotConnected
		}
		d := &dialer{clients: map[string]*fakeClient{"figma": c}}
		r := registry.New(providers, d)

		err := r.Enable(context.Background(), "figma")
		assert.ErrorIs(t, err, toolchat.ErrNotConnected)
		assert.False(t, r.IsEnabled("figma"))
		assert.Equal(t, int32(1), c.closed.Load())
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		d := &dialer{}
		r := registry.New(providers, d)

		assert.ErrorIs(t, r.Enable(context.Background(), "nope"), toolchat.ErrUnknownProvider)
		assert.ErrorIs(t, r.Disable("nope"), toolchat.ErrUnknownProvider)
		assert.Zero(t, d.count("nope"))
	})

	t.Run("can retry after failure", func(t *testing.T) {
		t.Parallel()
		d := &dialer{err: errors.New("refused"), clients: map[string]*fakeClient{"figma": newFakeClient("get_nodes")}}
		r := registry.New(providers, d)
		require.Error(t, r.Enable(context.Background(), "figma"))

		d.mu.Lock()
		d.err = nil
		d.mu.Unlock()
		require.NoError(t, r.Enable(context.Background(), "figma"))
		assert.True(t, r.IsEnabled("figma"))
		assert.Equal(t, 2, d.count("figma"))
	})
}

func TestRegistry_Disable(t *testing.T) {
	t.Parallel()
	figma := newFakeClient("get_nodes")
	docs := newFakeClient("search")
	d := &dialer{clients: map[string]*fakeClient{"figma": figma, "docs": docs}}
	r := registry.New(providers, d)
	require.NoError(t, r.Enable(context.Background(), "figma"))
	require.NoError(t, r.Enable(context.Background(), "docs"))

	before := r.Catalog()
	require.NoError(t, r.Disable("figma"))
	require.NoError(t, r.Disable("figma"))

	assert.False(t, r.IsEnabled("figma"))
	assert.Equal(t, int32(1), figma.closed.Load())
	assert.Nil(t, r.Capabilities("figma"))
	assert.Equal(t, []string{"search"}, names(r.Catalog().Declarations()))
	_, err := r.Catalog().Resolve("get_nodes")
	assert.ErrorIs(t, err, toolchat.ErrUnknownTool)

	// Snapshots taken earlier are unaffected.
	_, err = before.Resolve("get_nodes")
	assert.NoError(t, err)
}

func TestRegistry_DuplicateNamesLastWriterWins(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	first := newFakeClient("search", "get_nodes")
	second := newFakeClient("search")
	d := &dialer{clients: map[string]*fakeClient{"figma": first, "docs": second}}
	r := registry.New(providers, d, registry.WithLogger(logger))

	require.NoError(t, r.Enable(context.Background(), "figma"))
	require.NoError(t, r.Enable(context.Background(), "docs"))

	cat := r.Catalog()
	assert.Equal(t, []string{"search", "get_nodes"}, names(cat.Declarations()))
	ref, err := cat.Resolve("search")
	require.NoError(t, err)
	assert.Equal(t, "docs", ref.ProviderID)
	assert.Contains(t, buf.String(), "duplicate capability name")

	require.NoError(t, r.Disable("docs"))
	ref, err = r.Catalog().Resolve("search")
	require.NoError(t, err)
	assert.Equal(t, "figma", ref.ProviderID)
}

func TestRegistry_SkipsInvalidNames(t *testing.T) {
	t.Parallel()
	d := &dialer{clients: map[string]*fakeClient{"figma": newFakeClient("get nodes", "get_nodes")}}
	r := registry.New(providers, d)
	require.NoError(t, r.Enable(context.Background(), "figma"))
	assert.Equal(t, []string{"get_nodes"}, names(r.Catalog().Declarations()))
	assert.Len(t, r.Capabilities("figma"), 2)
}

func TestRegistry_Close(t *testing.T) {
	t.Parallel()
	figma := newFakeClient("get_nodes")
	docs := newFakeClient("search")
	docs.CloseFn = func() error { return errors.New("close failed") }
	d := &dialer{clients: map[string]*fakeClient{"figma": figma, "docs": docs}}
	r := registry.New(providers, d)
	require.NoError(t, r.Enable(context.Background(), "figma"))
	require.NoError(t, r.Enable(context.Background(), "docs"))

	err := r.Close()
	assert.ErrorContains(t, err, "close failed")
	assert.Empty(t, r.Enabled())
	assert.Empty(t, r.Catalog().Declarations())
	assert.Equal(t, int32(1), figma.closed.Load())
}

func TestRegistry_Providers(t *testing.T) {
	t.Parallel()
	r := registry.New(providers, &dialer{})
	got := r.Providers()
	assert.Equal(t, providers, got)
	got[0].ID = "changed"
	assert.Equal(t, "figma", r.Providers()[0].ID)
}

// endingClient is a fake client whose session can end on its own.
type endingClient struct {
	*fakeClient
	done chan struct{}
}

func (c *endingClient) Done() <-chan struct{} { return c.done }

func TestRegistry_SessionEnded(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		dials int
		last  *endingClient
	)
	d := registry.DialerFunc(func(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		last = &endingClient{fakeClient: newFakeClient("get_nodes"), done: make(chan struct{})}
		return last, nil
	})
	current := func() *endingClient {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
	r := registry.New(providers, d)
	require.NoError(t, r.Enable(context.Background(), "figma"))
	first := current()

	close(first.done)
	assert.False(t, r.IsEnabled("figma"))
	require.Eventually(t, func() bool {
		return len(r.Enabled()) == 0 && len(r.Catalog().Declarations()) == 0
	}, time.Second, 5*time.Millisecond)
	_, err := r.Catalog().Resolve("get_nodes")
	assert.ErrorIs(t, err, toolchat.ErrUnknownTool)

	require.NoError(t, r.Enable(context.Background(), "figma"))
	assert.True(t, r.IsEnabled("figma"))
	ref, err := r.Catalog().Resolve("get_nodes")
	require.NoError(t, err)
	assert.Same(t, current(), ref.Client)
	mu.Lock()
	assert.Equal(t, 2, dials)
	mu.Unlock()
}

func TestRegistry_EnableReplacesEndedSession(t *testing.T) {
	t.Parallel()
	var dials atomic.Int32
	var first *endingClient
	d := registry.DialerFunc(func(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error) {
		c := &endingClient{fakeClient: newFakeClient("get_nodes"), done: make(chan struct{})}
		if dials.Add(1) == 1 {
			first = c
		}
		return c, nil
	})
	r := registry.New(providers, d)
	require.NoError(t, r.Enable(context.Background(), "figma"))

	// Enable straight after the session ends, without waiting for the
	// registry to notice on its own.
	close(first.done)
	require.NoError(t, r.Enable(context.Background(), "figma"))
	assert.Equal(t, int32(2), dials.Load())
	assert.True(t, r.IsEnabled("figma"))
	assert.Equal(t, []string{"figma"}, r.Enabled())
}

func TestRegistry_QueriesDoNotWaitOnDial(t *testing.T) {
	t.Parallel()
	entered := make(chan struct{})
	release := make(chan struct{})
	d := registry.DialerFunc(func(ctx context.Context, cfg toolchat.ProviderConfig) (toolchat.ProviderClient, error) {
		close(entered)
		<-release
		return newFakeClient("get_nodes"), nil
	})
	r := registry.New(providers, d)

	enabled := make(chan error, 1)
	go func() { enabled <- r.Enable(context.Background(), "figma") }()
	<-entered

	answered := make(chan bool, 1)
	go func() {
		answered <- r.IsEnabled("docs") || r.IsEnabled("figma") || len(r.Enabled()) > 0 || r.Capabilities("figma") != nil
	}()
	select {
	case got := <-answered:
		assert.False(t, got)
	case <-time.After(time.Second):
		t.Fatal("queries blocked while a dial was in flight")
	}
	assert.Empty(t, r.Catalog().Declarations())

	close(release)
	require.NoError(t, <-enabled)
	assert.True(t, r.IsEnabled("figma"))
}

func TestRegistry_SSEProviderDropped(t *testing.T) {
	t.Parallel()
	s := server.NewMCPServer("figma", "1.0.0", server.WithToolCapabilities(true))
	s.AddTool(
		mcpgo.NewTool("get_nodes", mcpgo.WithDescription("List nodes")),
		func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultText("one frame"), nil
		},
	)
	ts := server.NewTestServer(s)
	t.Cleanup(ts.Close)

	cfg := []toolchat.ProviderConfig{{ID: "figma", Name: "Figma", URL: ts.URL}}
	r := registry.New(cfg, registry.SSEDialer{HTTPClient: &http.Client{}})
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Enable(context.Background(), "figma"))
	require.True(t, r.IsEnabled("figma"))

	ts.CloseClientConnections()
	require.Eventually(t, func() bool {
		return !r.IsEnabled("figma") && len(r.Catalog().Declarations()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	_, err := r.Catalog().Resolve("get_nodes")
	assert.ErrorIs(t, err, toolchat.ErrUnknownTool)

	require.NoError(t, r.Enable(context.Background(), "figma"))
	ref, err := r.Catalog().Resolve("get_nodes")
	require.NoError(t, err)
	res, err := ref.Client.CallCapability(context.Background(), "get_nodes", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "one frame", res.Content)
}
