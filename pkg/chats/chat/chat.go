// Package chat provides the transcript a single query accumulates while the
// agent loop runs.
package chat

import (
	"github.com/germanamz/localmcp/pkg/chats/message"
	"github.com/germanamz/localmcp/pkg/chats/role"
)

// Chat is a mutable conversation container. The zero value is ready to use.
// It is owned by one binding and is not safe for concurrent use.
type Chat struct {
	messages []message.Message
}

// New creates a Chat pre-populated with msgs.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds messages to the end of the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages.
func (c *Chat) Len() int {
	return len(c.messages)
}

// Last returns the most recent message, or false when the chat is empty.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of all messages.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// SystemPrompt returns the text of the first system message, or "".
func (c *Chat) SystemPrompt() string {
	for _, m := range c.messages {
		if m.Role == role.System {
			return m.TextContent()
		}
	}
	return ""
}
