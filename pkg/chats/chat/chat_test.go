package chat

import (
	"testing"

	"github.com/germanamz/localmcp/pkg/chats/message"
	"github.com/germanamz/localmcp/pkg/chats/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValue(t *testing.T) {
	var c Chat

	assert.Equal(t, 0, c.Len())
	_, ok := c.Last()
	assert.False(t, ok)
	assert.Empty(t, c.SystemPrompt())
}

func TestAppendAndLast(t *testing.T) {
	c := New(message.NewText("agent", role.System, "You are a triage assistant."))
	c.Append(message.NewText("user", role.User, "show me _main"))

	require.Equal(t, 2, c.Len())

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, "show me _main", last.TextContent())
	assert.Equal(t, "You are a triage assistant.", c.SystemPrompt())
}

func TestMessagesReturnsCopy(t *testing.T) {
	c := New(message.NewText("user", role.User, "one"))

	msgs := c.Messages()
	msgs[0] = message.NewText("user", role.User, "changed")

	first, _ := c.Last()
	assert.Equal(t, "one", first.TextContent())
}
