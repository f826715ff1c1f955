// Command demoprovider runs a small MCP capability provider over SSE. It
// serves a fixed design file so the chat client can be tried without a real
// design tool.
//
// Usage:
//
//	demoprovider [-addr :3333]
//
// Then enable it from toolchat with a provider entry whose url is
// http://localhost:3333.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// node is one element of the demo design file.
type node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId,omitempty"`
}

var nodes = []node{
	{ID: "1:1", Name: "Landing page", Type: "FRAME"},
	{ID: "1:2", Name: "Hero section", Type: "FRAME", ParentID: "1:1"},
	{ID: "1:3", Name: "Logo", Type: "VECTOR", ParentID: "1:2"},
	{ID: "1:4", Name: "Headline", Type: "TEXT", ParentID: "1:2"},
	{ID: "1:5", Name: "Sign up", Type: "COMPONENT", ParentID: "1:2"},
}

func main() {
	addr := flag.String("addr", ":3333", "Listen address")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := serve(ctx, *addr, log); err != nil {
		log.Error().Err(err).Msg("demoprovider")
		os.Exit(1)
	}
}

func serve(ctx context.Context, addr string, log zerolog.Logger) error {
	sse := server.NewSSEServer(newServer(), server.WithBaseURL(baseURL(addr)))
	errc := make(chan error, 1)
	go func() { errc <- sse.Start(addr) }()
	log.Info().Str("addr", addr).Msg("serving MCP over SSE")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sse.Shutdown(shutdownCtx)
	}
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// newServer builds the MCP server with its capabilities registered.
func newServer() *server.MCPServer {
	s := server.NewMCPServer("demo-design", "1.0.0", server.WithToolCapabilities(true))
	s.AddTool(
		mcp.NewTool("get_nodes",
			mcp.WithDescription("List the nodes of the open design file"),
			mcp.WithString("type",
				mcp.Description("Only return nodes of this type"),
				mcp.Enum("FRAME", "TEXT", "VECTOR", "COMPONENT"),
			),
		),
		getNodes,
	)
	s.AddTool(
		mcp.NewTool("get_node",
			mcp.WithDescription("Get one node by ID"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Node ID, e.g. 1:2")),
		),
		getNode,
	)
	return s
}

func getNodes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := strings.ToUpper(cast.ToString(req.GetArguments()["type"]))
	out := make([]node, 0, len(nodes))
	for _, n := range nodes {
		if typ == "" || n.Type == typ {
			out = append(out, n)
		}
	}
	return jsonResult(out)
}

func getNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := cast.ToString(req.GetArguments()["id"])
	for _, n := range nodes {
		if n.ID == id {
			return jsonResult(n)
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("node %q not found", id)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
