// Package content defines the parts a message is made of.
package content

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is a plain text part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ToolCall is the model asking for an MCP tool to be run. Arguments is the raw
// JSON object produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolResult is the text an MCP tool returned for a ToolCall.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }
