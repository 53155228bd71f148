package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/germanamz/localmcp/pkg/chats/chat"
	"github.com/germanamz/localmcp/pkg/chats/content"
	"github.com/germanamz/localmcp/pkg/chats/message"
	"github.com/germanamz/localmcp/pkg/chats/role"
	"github.com/germanamz/localmcp/pkg/config"
	"github.com/germanamz/localmcp/pkg/format"
	"github.com/germanamz/localmcp/pkg/modeladapter"
	"github.com/germanamz/localmcp/pkg/tools/mcpclient"
	"github.com/germanamz/localmcp/pkg/tools/mcpserver"
	"github.com/germanamz/localmcp/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errModelOffline = errors.New("model offline")

// toolCaller calls the first offered tool, then answers with its result.
type toolCaller struct{}

func (toolCaller) Complete(_ context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	last, _ := c.Last()
	if last.Role == role.Tool {
		tr, _ := last.Parts[0].(content.ToolResult)
		return message.NewText("", role.Assistant, "Latest sample:\n"+tr.Content), nil
	}
	if len(tools) == 0 {
		return message.NewText("", role.Assistant, "no tools"), nil
	}
	return message.New("", role.Assistant, content.ToolCall{ID: "call_1", Name: tools[0].Name, Arguments: `{}`}), nil
}

// silent finishes without saying anything.
type silent struct{}

func (silent) Complete(context.Context, *chat.Chat, []toolbox.Tool) (message.Message, error) {
	return message.New("", role.Assistant), nil
}

// looping never stops calling tools.
type looping struct{}

func (looping) Complete(_ context.Context, _ *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	return message.New("", role.Assistant, content.ToolCall{ID: "c", Name: tools[0].Name, Arguments: `{}`}), nil
}

// broken always fails.
type broken struct{}

func (broken) Complete(context.Context, *chat.Chat, []toolbox.Tool) (message.Message, error) {
	return message.Message{}, errModelOffline
}

// stalled blocks until its context ends.
type stalled struct{}

func (stalled) Complete(ctx context.Context, _ *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
	<-ctx.Done()
	return message.Message{}, ctx.Err()
}

func init() {
	completers := map[string]modeladapter.Completer{
		"test-toolcaller": toolCaller{},
		"test-silent":     silent{},
		"test-looping":    looping{},
		"test-broken":     broken{},
		"test-stalled":    stalled{},
	}
	for kind, c := range completers {
		RegisterProvider(kind, func(config.LLM) (modeladapter.Completer, error) { return c, nil })
	}
}

const sampleTool = `{"address": 4096, "file_name": "payload.exe"}`

// fakeBackends serves every connection from an in-memory MCP server with a
// single get_recent tool and records the commands it was asked to start.
type fakeBackends struct {
	mu    sync.Mutex
	cmds  []mcpclient.Command
	err   error
	dones []chan struct{}
}

func (f *fakeBackends) connector(t *testing.T) Connector {
	return func(ctx context.Context, cmd mcpclient.Command) (*mcpclient.MCPClient, error) {
		f.mu.Lock()
		f.cmds = append(f.cmds, cmd)
		err := f.err
		f.mu.Unlock()

		if err != nil {
			return nil, err
		}

		server := mcpserver.New("sensors", "1.0.0")
		server.Register(toolbox.Tool{
			Name:        "get_recent",
			Description: "Latest samples",
			InputSchema: json.RawMessage(`{"type":"object"}`),
			Handler: func(context.Context, json.RawMessage) (string, error) {
				return sampleTool, nil
			},
		})

		serverTransport, clientTransport := mcp.NewInMemoryTransports()

		serverCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		f.mu.Lock()
		f.dones = append(f.dones, done)
		f.mu.Unlock()
		go func() {
			_ = server.Run(serverCtx, serverTransport)
			close(done)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})

		return mcpclient.Connect(ctx, clientTransport)
	}
}

func (f *fakeBackends) commands() []mcpclient.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mcpclient.Command(nil), f.cmds...)
}

// requireReleased fails unless every server started so far has stopped,
// which happens once the client side of its session is closed.
func (f *fakeBackends) requireReleased(t *testing.T) {
	t.Helper()

	f.mu.Lock()
	dones := append([]chan struct{}(nil), f.dones...)
	f.mu.Unlock()

	require.NotEmpty(t, dones)
	for i, done := range dones {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("backend %d still running after Handle returned", i)
		}
	}
}

func testDocument(kind, timeout string) string {
	return `{
  "llm": {"kind": "` + kind + `", "model": "m"},
  "max_iterations": 3,
  "timeout": "` + timeout + `",
  "mcpServers": {
    "sensors": {
      "command": "~/bin/sensors-mcp",
      "args": ["--stdio"],
      "cwd": "~/work",
      "env": {"SENSORS_TOKEN": "t"},
      "keywords": ["sample"],
      "instructions": ["You list samples.", "Be brief."],
      "format_hex_keys": true,
      "address_keys": ["address"]
    },
    "binja": {
      "command": "/opt/binja/mcp",
      "keywords": ["disassembly"]
    }
  }
}`
}

func newTestEngine(t *testing.T, kind string, log *slog.Logger) (*Engine, *fakeBackends) {
	t.Helper()
	return newTestEngineTimeout(t, kind, "", log)
}

func newTestEngineTimeout(t *testing.T, kind, timeout string, log *slog.Logger) (*Engine, *fakeBackends) {
	t.Helper()

	cfg, err := config.Parse([]byte(testDocument(kind, timeout)))
	require.NoError(t, err)

	e, err := New(cfg, log)
	require.NoError(t, err)

	fb := &fakeBackends{}
	e.connect = fb.connector(t)

	return e, fb
}

func TestNew_UnknownKind(t *testing.T) {
	cfg, err := config.Parse([]byte(testDocument("llamafile", "")))
	require.NoError(t, err)

	_, err = New(cfg, nil)
	require.Error(t, err)

	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), `unknown kind "llamafile"`)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, nil)

	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestHandle_RoutesAndFormats(t *testing.T) {
	e, fb := newTestEngine(t, "test-toolcaller", nil)

	doc, err := e.Handle(context.Background(), "show the latest Sample")
	require.NoError(t, err)

	want := format.Title + "Latest sample:\n```json\n{\"address\": \"`0x1000`\", \"file_name\": \"`payload.exe`\"}\n```"
	assert.Equal(t, want, doc)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cmds := fb.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, mcpclient.Command{
		Path: filepath.Join(home, "bin", "sensors-mcp"),
		Args: []string{"--stdio"},
		Dir:  filepath.Join(home, "work"),
		Env:  map[string]string{"SENSORS_TOKEN": "t"},
	}, cmds[0])
}

func TestHandle_KeywordRouteWithoutHints(t *testing.T) {
	e, fb := newTestEngine(t, "test-toolcaller", nil)

	doc, err := e.Handle(context.Background(), "disassembly of _main")
	require.NoError(t, err)
	assert.Contains(t, doc, `{"address": 4096, "file_name": "`+"`payload.exe`"+`"}`)

	cmds := fb.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "/opt/binja/mcp", cmds[0].Path)
	assert.Empty(t, cmds[0].Dir)
}

func TestHandle_Fallback(t *testing.T) {
	e, fb := newTestEngine(t, "test-toolcaller", nil)

	_, err := e.Handle(context.Background(), "get taginfo for redline")
	require.NoError(t, err)

	cmds := fb.commands()
	require.Len(t, cmds, 1)
	assert.True(t, strings.HasSuffix(cmds[0].Path, "sensors-mcp"))
}

func TestHandle_NoResult(t *testing.T) {
	e, _ := newTestEngine(t, "test-silent", nil)

	doc, err := e.Handle(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, format.NoResultDocument, doc)
}

func TestHandle_MaxIterationsIsNoResult(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	e, _ := newTestEngine(t, "test-looping", log)

	doc, err := e.Handle(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, format.NoResultDocument, doc)
	assert.Contains(t, buf.String(), "agent gave up")
}

func TestHandle_CompleterError(t *testing.T) {
	e, _ := newTestEngine(t, "test-broken", nil)

	doc, err := e.Handle(context.Background(), "sample")
	require.Error(t, err)
	assert.Empty(t, doc)
	assert.ErrorIs(t, err, errModelOffline)
	assert.Contains(t, err.Error(), `engine: invoke "sensors"`)
}

func TestHandle_ReleasesBackend(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr bool
	}{
		{name: "answer", kind: "test-toolcaller"},
		{name: "completer error", kind: "test-broken", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fb := newTestEngine(t, tt.kind, nil)

			_, err := e.Handle(context.Background(), "sample")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			fb.requireReleased(t)
		})
	}
}

func TestHandle_ConnectError(t *testing.T) {
	e, fb := newTestEngine(t, "test-toolcaller", nil)
	fb.err = errors.New("exec: no such file")

	_, err := e.Handle(context.Background(), "disassembly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `engine: bind "binja"`)
	assert.Contains(t, err.Error(), "no such file")
}

func TestHandle_Timeout(t *testing.T) {
	e, _ := newTestEngineTimeout(t, "test-stalled", "50ms", nil)

	_, err := e.Handle(context.Background(), "sample")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandle_Concurrent(t *testing.T) {
	e, fb := newTestEngine(t, "test-toolcaller", nil)

	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	docs := make([]string, n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs[i], errs[i] = e.Handle(context.Background(), "sample")
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, docs[0], docs[i])
	}
	assert.Len(t, fb.commands(), n)
}

func TestHandle_LogsQueryID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	e, _ := newTestEngine(t, "test-toolcaller", log)

	_, err := e.Handle(context.Background(), "sample")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "query routed")
	assert.Contains(t, out, "backend=sensors")
	assert.Contains(t, out, "query answered")
	assert.Contains(t, out, "agent started")

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.Contains(t, line, "query_id=", line)
	}
}

func TestBind_UnknownBackend(t *testing.T) {
	e, fb := newTestEngine(t, "test-toolcaller", nil)

	_, err := e.Bind(context.Background(), "ghidra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "ghidra"`)
	assert.Empty(t, fb.commands())
}

func TestBind_Invoke(t *testing.T) {
	e, _ := newTestEngine(t, "test-toolcaller", nil)

	b, err := e.Bind(context.Background(), "sensors")
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	assert.Equal(t, "sensors", b.Backend.Key)

	raw, err := b.Invoke(context.Background(), "latest")
	require.NoError(t, err)
	assert.Equal(t, "Latest sample:\n"+sampleTool, raw)

	assert.Equal(t, "You list samples.\nBe brief.", b.agent.Chat().SystemPrompt())

	_, ok := b.Usage()
	assert.False(t, ok)
}

func TestBind_CloseIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, "test-toolcaller", nil)

	b, err := e.Bind(context.Background(), "binja")
	require.NoError(t, err)

	first := b.Close()
	assert.Equal(t, first, b.Close())
}
