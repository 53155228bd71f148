// Package ollama provides a Completer for Ollama's native /api/chat endpoint,
// the default backend for running the agent against a local model.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/germanamz/localmcp/pkg/chats/chat"
	"github.com/germanamz/localmcp/pkg/chats/content"
	"github.com/germanamz/localmcp/pkg/chats/message"
	"github.com/germanamz/localmcp/pkg/chats/role"
	"github.com/germanamz/localmcp/pkg/modeladapter"
	"github.com/germanamz/localmcp/pkg/modeladapter/usage"
	"github.com/germanamz/localmcp/pkg/tools/toolbox"
)

// DefaultBaseURL is Ollama's default listen address.
const DefaultBaseURL = "http://localhost:11434"

const chatPath = "/api/chat"

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for Ollama. Ollama does not
// assign tool call IDs, so the adapter numbers them itself.
type Adapter struct {
	modeladapter.ModelAdapter

	nextCallID int
}

// New creates an Adapter. An empty baseURL resolves to $OLLAMA_HOST, then to
// DefaultBaseURL.
func New(baseURL, model string) *Adapter {
	if baseURL == "" {
		baseURL = hostFromEnv()
	}

	a := &Adapter{}
	a.BaseURL = strings.TrimRight(baseURL, "/")
	a.Name = model

	return a
}

// hostFromEnv reads OLLAMA_HOST the way the ollama CLI does: a bare host:port
// gets an http:// scheme.
func hostFromEnv() string {
	host := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	if host == "" {
		return DefaultBaseURL
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}

// Complete sends the transcript and returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	req := a.buildRequest(c, tools)

	var resp apiResponse
	if err := a.PostJSON(ctx, chatPath, req, &resp); err != nil {
		return message.Message{}, fmt.Errorf("ollama: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
	})

	return a.parseMessage(resp.Message), nil
}

type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Tools    []apiToolDef `json:"tools,omitempty"`
	Stream   bool         `json:"stream"`
	Options  *apiOptions  `json:"options,omitempty"`
}

type apiOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type apiMessage struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []apiToolCall `json:"tool_calls,omitempty"`
	ToolName  string        `json:"tool_name,omitempty"`
}

type apiToolCall struct {
	Function apiToolFunction `json:"function"`
}

type apiToolFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type apiToolDef struct {
	Type     string         `json:"type"`
	Function apiToolDefFunc `json:"function"`
}

type apiToolDefFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type apiResponse struct {
	Model           string     `json:"model"`
	Message         apiMessage `json:"message"`
	Done            bool       `json:"done"`
	PromptEvalCount int        `json:"prompt_eval_count"`
	EvalCount       int        `json:"eval_count"`
}

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{Model: a.Name}

	if a.Temperature != 0 || a.MaxTokens != 0 {
		req.Options = &apiOptions{Temperature: a.Temperature, NumPredict: a.MaxTokens}
	}

	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		req.Tools = append(req.Tools, apiToolDef{
			Type: "function",
			Function: apiToolDefFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}

	// Tool results are matched back to the tool name, which is all Ollama
	// uses to correlate them.
	names := make(map[string]string)

	for _, m := range c.Messages() {
		switch m.Role {
		case role.System, role.User:
			req.Messages = append(req.Messages, apiMessage{Role: m.Role.String(), Content: m.TextContent()})

		case role.Assistant:
			msg := apiMessage{Role: "assistant", Content: m.TextContent()}
			for _, tc := range m.ToolCalls() {
				names[tc.ID] = tc.Name
				args := json.RawMessage(tc.Arguments)
				if len(args) == 0 {
					args = json.RawMessage(`{}`)
				}
				msg.ToolCalls = append(msg.ToolCalls, apiToolCall{
					Function: apiToolFunction{Name: tc.Name, Arguments: args},
				})
			}
			req.Messages = append(req.Messages, msg)

		case role.Tool:
			for _, p := range m.Parts {
				if tr, ok := p.(content.ToolResult); ok {
					req.Messages = append(req.Messages, apiMessage{
						Role:     "tool",
						Content:  tr.Content,
						ToolName: names[tr.ToolCallID],
					})
				}
			}
		}
	}

	return req
}

func (a *Adapter) parseMessage(m apiMessage) message.Message {
	var parts []content.Part

	if m.Content != "" {
		parts = append(parts, content.Text{Text: m.Content})
	}

	for _, tc := range m.ToolCalls {
		a.nextCallID++
		args := string(tc.Function.Arguments)
		if args == "" || args == "null" {
			args = "{}"
		}
		parts = append(parts, content.ToolCall{
			ID:        fmt.Sprintf("call_%d", a.nextCallID),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return message.New("", role.Assistant, parts...)
}
