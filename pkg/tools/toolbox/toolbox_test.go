package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/germanamz/localmcp/pkg/chats/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, input json.RawMessage) (string, error) {
	return string(input), nil
}

func errorHandler(_ context.Context, _ json.RawMessage) (string, error) {
	return "", errors.New("tool failed")
}

func newEchoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "Echoes input",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler:     echoHandler,
	}
}

func TestNew(t *testing.T) {
	tb := New()
	assert.Equal(t, 0, tb.Len())
	assert.Empty(t, tb.Tools())
}

func TestRegisterAndGet(t *testing.T) {
	tb := New()
	tb.Register(newEchoTool("echo"))

	got, ok := tb.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Name)

	_, ok = tb.Get("missing")
	assert.False(t, ok)
}

func TestRegisterReplaces(t *testing.T) {
	tb := New()
	tb.Register(newEchoTool("echo"))

	replacement := newEchoTool("echo")
	replacement.Description = "replaced"
	tb.Register(replacement)

	got, _ := tb.Get("echo")
	assert.Equal(t, "replaced", got.Description)
	assert.Equal(t, 1, tb.Len())
}

func TestToolsSortedByName(t *testing.T) {
	tb := New()
	tb.Register(newEchoTool("get_taginfo"), newEchoTool("decompile"), newEchoTool("get_recent"))

	var names []string
	for _, tool := range tb.Tools() {
		names = append(names, tool.Name)
	}

	assert.Equal(t, []string{"decompile", "get_recent", "get_taginfo"}, names)
}

func TestCall(t *testing.T) {
	tb := New()
	tb.Register(newEchoTool("echo"), Tool{Name: "broken", Handler: errorHandler})

	t.Run("success", func(t *testing.T) {
		res := tb.Call(context.Background(), content.ToolCall{ID: "c1", Name: "echo", Arguments: `{"x":1}`})

		assert.Equal(t, "c1", res.ToolCallID)
		assert.JSONEq(t, `{"x":1}`, res.Content)
		assert.False(t, res.IsError)
	})

	t.Run("handler error", func(t *testing.T) {
		res := tb.Call(context.Background(), content.ToolCall{ID: "c2", Name: "broken"})

		assert.True(t, res.IsError)
		assert.Equal(t, "tool failed", res.Content)
	})

	t.Run("unknown tool", func(t *testing.T) {
		res := tb.Call(context.Background(), content.ToolCall{ID: "c3", Name: "nope"})

		assert.True(t, res.IsError)
		assert.Equal(t, "tool not found: nope", res.Content)
	})
}
