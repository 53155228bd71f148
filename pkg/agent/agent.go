// Package agent provides the agent that answers a query against one MCP tool
// backend. It runs a ReAct loop (reason + act): the model is asked for a
// reply, any tool calls it makes are executed against the agent's toolboxes,
// and the results are fed back until the model answers in plain text.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/localmcp/pkg/agentctx"
	"github.com/germanamz/localmcp/pkg/chats/chat"
	"github.com/germanamz/localmcp/pkg/chats/content"
	"github.com/germanamz/localmcp/pkg/chats/message"
	"github.com/germanamz/localmcp/pkg/chats/role"
	"github.com/germanamz/localmcp/pkg/modeladapter"
	"github.com/germanamz/localmcp/pkg/tools/toolbox"
)

// ErrMaxIterations is returned when the ReAct loop exceeds MaxIterations
// without the model producing a final answer.
var ErrMaxIterations = errors.New("agent: max iterations reached")

// Options configures an Agent.
type Options struct {
	MaxIterations int          // ReAct loop limit (0 = unlimited).
	Middleware    []Middleware // Applied around Run().
}

// Agent answers queries with a completer and the tools of its toolboxes.
type Agent struct {
	name         string
	instructions string
	completer    modeladapter.Completer
	chat         *chat.Chat
	toolboxes    []*toolbox.ToolBox
	options      Options
}

// New creates an Agent with the given configuration.
func New(name, instructions string, completer modeladapter.Completer, opts Options) *Agent {
	return &Agent{
		name:         name,
		instructions: instructions,
		completer:    completer,
		chat:         chat.New(),
		options:      opts,
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Chat returns the agent's chat.
func (a *Agent) Chat() *chat.Chat { return a.chat }

// Completer returns the agent's completer.
func (a *Agent) Completer() modeladapter.Completer { return a.completer }

// AddToolBoxes adds toolboxes to the agent.
func (a *Agent) AddToolBoxes(tbs ...*toolbox.ToolBox) {
	a.toolboxes = append(a.toolboxes, tbs...)
}

// Start submits query as a user turn, runs the agent and returns the text of
// its final reply. An empty string means the model finished without saying
// anything.
func (a *Agent) Start(ctx context.Context, query string) (string, error) {
	a.init()
	a.chat.Append(message.NewText("user", role.User, query))

	reply, err := a.Run(ctx)
	if err != nil {
		return "", err
	}

	return reply.TextContent(), nil
}

// Run executes the agent's ReAct loop with middleware applied.
func (a *Agent) Run(ctx context.Context) (message.Message, error) {
	var runner Runner = RunnerFunc(a.run)

	// Apply middleware in reverse order so the first middleware is outermost.
	for i := len(a.options.Middleware) - 1; i >= 0; i-- {
		runner = a.options.Middleware[i](runner)
	}

	return runner.Run(ctx)
}

// init appends the system prompt once.
func (a *Agent) init() {
	if a.chat.SystemPrompt() == "" && strings.TrimSpace(a.instructions) != "" {
		a.chat.Append(message.NewText(a.name, role.System, a.instructions))
	}
}

// run is the internal ReAct loop.
func (a *Agent) run(ctx context.Context) (message.Message, error) {
	ctx = agentctx.WithAgentName(ctx, a.name)

	var tools []toolbox.Tool
	for _, tb := range a.toolboxes {
		tools = append(tools, tb.Tools()...)
	}

	for i := 0; a.options.MaxIterations == 0 || i < a.options.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return message.Message{}, err
		}

		reply, err := a.completer.Complete(ctx, a.chat, tools)
		if err != nil {
			return message.Message{}, err
		}

		reply.Sender = a.name
		a.chat.Append(reply)

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			return reply, nil
		}

		for _, tc := range calls {
			result := callTool(ctx, a.toolboxes, tc)
			a.chat.Append(message.New(a.name, role.Tool, result))
		}
	}

	return message.Message{}, ErrMaxIterations
}

// callTool searches all toolboxes for the named tool and executes it.
func callTool(ctx context.Context, toolboxes []*toolbox.ToolBox, tc content.ToolCall) content.ToolResult {
	for _, tb := range toolboxes {
		if _, ok := tb.Get(tc.Name); ok {
			return tb.Call(ctx, tc)
		}
	}

	return content.ToolResult{
		ToolCallID: tc.ID,
		Content:    fmt.Sprintf("tool not found: %s", tc.Name),
		IsError:    true,
	}
}
