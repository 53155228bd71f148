// Package anthropic provides a Completer for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/localmcp/pkg/chats/chat"
	"github.com/germanamz/localmcp/pkg/chats/content"
	"github.com/germanamz/localmcp/pkg/chats/message"
	"github.com/germanamz/localmcp/pkg/chats/role"
	"github.com/germanamz/localmcp/pkg/modeladapter"
	"github.com/germanamz/localmcp/pkg/modeladapter/usage"
	"github.com/germanamz/localmcp/pkg/tools/toolbox"
)

// DefaultBaseURL is used when the LLM descriptor leaves base_url empty.
const DefaultBaseURL = "https://api.anthropic.com"

const (
	messagesPath     = "/v1/messages"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for the Messages API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter. The Messages API requires max_tokens, so it
// defaults to 4096.
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = strings.TrimRight(baseURL, "/")
	a.Auth = modeladapter.Auth{
		Key:    apiKey,
		Header: "x-api-key",
	}
	a.Name = model
	a.MaxTokens = defaultMaxTokens
	a.Headers = map[string]string{
		"anthropic-version": apiVersion,
	}

	return a
}

// Complete sends the transcript and returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	req := a.buildRequest(c, tools)

	var resp apiResponse
	if err := a.PostJSON(ctx, messagesPath, req, &resp); err != nil {
		return message.Message{}, fmt.Errorf("anthropic: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	return parseResponse(resp), nil
}

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type apiToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type apiResponse struct {
	Content    []apiContent `json:"content"`
	StopReason string       `json:"stop_reason"`
	Usage      apiUsage     `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{
		Model:     a.Name,
		MaxTokens: a.MaxTokens,
		System:    c.SystemPrompt(),
	}

	if a.Temperature != 0 {
		t := a.Temperature
		req.Temperature = &t
	}

	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		req.Tools = append(req.Tools, apiToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	for _, m := range c.Messages() {
		if m.Role == role.System {
			continue
		}
		appendMessage(&req.Messages, m)
	}

	return req
}

// appendMessage converts m into content blocks. Consecutive blocks with the
// same role are merged because the API requires alternating roles; tool
// results travel in user turns.
func appendMessage(msgs *[]apiMessage, m message.Message) {
	msgRole := "user"
	if m.Role == role.Assistant {
		msgRole = "assistant"
	}

	for _, p := range m.Parts {
		block, ok := partToBlock(p)
		if !ok {
			continue
		}

		if n := len(*msgs); n > 0 && (*msgs)[n-1].Role == msgRole {
			(*msgs)[n-1].Content = append((*msgs)[n-1].Content, block)
			continue
		}

		*msgs = append(*msgs, apiMessage{Role: msgRole, Content: []apiContent{block}})
	}
}

func partToBlock(p content.Part) (apiContent, bool) {
	switch v := p.(type) {
	case content.Text:
		return apiContent{Type: "text", Text: v.Text}, true
	case content.ToolCall:
		input := json.RawMessage(v.Arguments)
		if len(input) == 0 {
			input = json.RawMessage(`{}`)
		}
		return apiContent{Type: "tool_use", ID: v.ID, Name: v.Name, Input: input}, true
	case content.ToolResult:
		return apiContent{Type: "tool_result", ToolUseID: v.ToolCallID, Content: v.Content, IsError: v.IsError}, true
	}
	return apiContent{}, false
}

func parseResponse(resp apiResponse) message.Message {
	var parts []content.Part

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			parts = append(parts, content.Text{Text: block.Text})
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			parts = append(parts, content.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}

	return message.New("", role.Assistant, parts...)
}
