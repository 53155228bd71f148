package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/germanamz/localmcp/pkg/agent"
	"github.com/germanamz/localmcp/pkg/config"
	"github.com/germanamz/localmcp/pkg/modeladapter"
	"github.com/germanamz/localmcp/pkg/modeladapter/usage"
	"github.com/germanamz/localmcp/pkg/tools/mcpclient"
)

// Connector starts the MCP server described by cmd and connects to it.
type Connector func(ctx context.Context, cmd mcpclient.Command) (*mcpclient.MCPClient, error)

// Binding pairs one backend with a freshly built agent for a single query.
// It owns the backend's MCP client; callers must Close it.
type Binding struct {
	Backend config.Backend

	agent     *agent.Agent
	completer modeladapter.Completer
	client    *mcpclient.MCPClient

	closeOnce sync.Once
	closeErr  error
}

// Bind resolves the backend for key, spawns its MCP server, lists its tools
// and builds an agent around them. If anything fails after the server has
// been spawned it is shut down before Bind returns.
func (e *Engine) Bind(ctx context.Context, key string) (*Binding, error) {
	backend, ok := e.cfg.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("engine: bind: unknown backend %q", key)
	}

	completer, err := buildCompleter(e.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("engine: bind %q: %w", key, err)
	}

	client, err := e.connect(ctx, mcpclient.Command{
		Path: config.ExpandHome(backend.Command),
		Args: backend.Args,
		Dir:  config.ExpandHome(backend.Cwd),
		Env:  backend.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: bind %q: %w", key, err)
	}

	tb, err := client.ToolBox(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("engine: bind %q: %w", key, err)
	}

	a := agent.New(backend.Key, backend.Instructions(), completer, agent.Options{
		MaxIterations: e.cfg.MaxIterations,
		Middleware:    e.middleware(backend.Key),
	})
	a.AddToolBoxes(tb)

	return &Binding{
		Backend:   backend,
		agent:     a,
		completer: completer,
		client:    client,
	}, nil
}

func (e *Engine) middleware(name string) []agent.Middleware {
	mw := []agent.Middleware{
		agent.Logger(e.log, name),
		agent.Recovery(),
	}

	if d := e.cfg.Timeout.Std(); d > 0 {
		mw = append(mw, agent.Timeout(d))
	}

	return mw
}

// Invoke runs the agent on query and returns its raw answer. An empty string
// means the agent produced no result.
func (b *Binding) Invoke(ctx context.Context, query string) (string, error) {
	return b.agent.Start(ctx, query)
}

// Usage reports the tokens the binding's completer has consumed, if the
// completer tracks them.
func (b *Binding) Usage() (usage.TokenCount, bool) {
	r, ok := b.completer.(modeladapter.UsageReporter)
	if !ok {
		return usage.TokenCount{}, false
	}
	return r.UsageTracker().Total(), true
}

// Close shuts down the backend's MCP server. It is safe to call more than
// once.
func (b *Binding) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.client.Close()
	})
	return b.closeErr
}
