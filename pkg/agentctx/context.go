// Package agentctx provides context key helpers for propagating agent
// identity and the current query id across package boundaries. It has no
// dependencies so both pkg/agent and pkg/engine can import it.
package agentctx

import "context"

type (
	agentNameCtxKey struct{}
	queryIDCtxKey   struct{}
)

// WithAgentName returns a new context carrying the given agent name.
func WithAgentName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, agentNameCtxKey{}, name)
}

// AgentNameFromContext extracts the agent name from the context.
// Returns "" if no agent name is present.
func AgentNameFromContext(ctx context.Context) string {
	v, _ := ctx.Value(agentNameCtxKey{}).(string)
	return v
}

// WithQueryID returns a new context carrying the id of the query being
// answered.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDCtxKey{}, id)
}

// QueryIDFromContext extracts the query id, or "" if there is none.
func QueryIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(queryIDCtxKey{}).(string)
	return v
}
