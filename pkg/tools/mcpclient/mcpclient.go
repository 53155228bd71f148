// Package mcpclient spawns MCP server processes and exposes their tools to the
// agent loop.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/germanamz/localmcp/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	clientName    = "localmcp"
	clientVersion = "0.1.0"
)

// Command describes how to launch an MCP server over stdio.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env is layered on top of the current process environment.
	Env map[string]string
}

// Cmd builds the *exec.Cmd for c.
func (c Command) Cmd() *exec.Cmd {
	cmd := exec.Command(c.Path, c.Args...) //nolint:gosec // command comes from the operator's backend config
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = environ(os.Environ(), c.Env)
	}
	return cmd
}

// environ appends extra to base as KEY=VALUE pairs in key order. Later entries
// win in exec, so extra overrides inherited variables.
func environ(base []string, extra map[string]string) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(keys))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// MCPClient is a connected session with one MCP server.
type MCPClient struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

// New spawns the server described by c and returns a connected client. The
// process lives until Close.
func New(ctx context.Context, c Command) (*MCPClient, error) {
	transport := &mcp.CommandTransport{Command: c.Cmd()}

	return Connect(ctx, transport)
}

// Connect performs the MCP handshake over an arbitrary transport, e.g. the
// SDK's in-memory transports.
func Connect(ctx context.Context, transport mcp.Transport) (*MCPClient, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}

	return &MCPClient{client: client, session: session}, nil
}

// ListTools fetches the server's tools. Each returned Tool calls back into
// this client.
func (c *MCPClient) ListTools(ctx context.Context) ([]toolbox.Tool, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	tools := make([]toolbox.Tool, 0, len(result.Tools))
	for _, sdkTool := range result.Tools {
		t, err := fromSDKTool(sdkTool, c)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: convert tool %q: %w", sdkTool.Name, err)
		}
		tools = append(tools, t)
	}

	return tools, nil
}

// ToolBox lists the server's tools into a new ToolBox.
func (c *MCPClient) ToolBox(ctx context.Context) (*toolbox.ToolBox, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tb := toolbox.New()
	tb.Register(tools...)
	return tb, nil
}

// CallTool calls a named tool with raw JSON arguments and returns its text
// output. A tool-level error (IsError) is returned as an error.
func (c *MCPClient) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	var args map[string]any
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("mcpclient: unmarshal arguments: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call tool: %w", err)
	}

	text := extractText(result)

	if result.IsError {
		return "", fmt.Errorf("mcpclient: tool error: %s", text)
	}

	return text, nil
}

// Close ends the session. For command transports the SDK closes stdin, waits
// for the process and escalates to SIGTERM/SIGKILL.
func (c *MCPClient) Close() error {
	return c.session.Close()
}

func fromSDKTool(sdkTool *mcp.Tool, c *MCPClient) (toolbox.Tool, error) {
	schemaBytes, err := json.Marshal(sdkTool.InputSchema)
	if err != nil {
		return toolbox.Tool{}, fmt.Errorf("marshal input schema: %w", err)
	}

	name := sdkTool.Name

	return toolbox.Tool{
		Name:        sdkTool.Name,
		Description: sdkTool.Description,
		InputSchema: json.RawMessage(schemaBytes),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			return c.CallTool(ctx, name, input)
		},
	}, nil
}

// extractText joins all TextContent items with newlines.
func extractText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	return strings.Join(texts, "\n")
}
