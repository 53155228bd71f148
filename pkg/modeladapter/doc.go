// Package modeladapter defines the Completer interface the agent loop talks to
// and an embeddable ModelAdapter with the HTTP plumbing shared by every
// provider.
//
// Token accounting lives in [github.com/germanamz/localmcp/pkg/modeladapter/usage].
// Concrete providers live under pkg/providers.
package modeladapter
