// Package chats holds the provider-agnostic conversation model shared by the
// agent loop and the model adapters.
//
//   - [github.com/germanamz/localmcp/pkg/chats/role] — who sent a message
//   - [github.com/germanamz/localmcp/pkg/chats/content] — text, tool calls and tool results
//   - [github.com/germanamz/localmcp/pkg/chats/message] — a role plus content parts
//   - [github.com/germanamz/localmcp/pkg/chats/chat] — the per-query transcript
package chats
