// Package providers groups the LLM completers an agent binding can be backed
// by:
//   - [github.com/germanamz/localmcp/pkg/providers/ollama] — local models through Ollama's native chat API
//   - [github.com/germanamz/localmcp/pkg/providers/openai] — the Chat Completions API and compatible servers
//   - [github.com/germanamz/localmcp/pkg/providers/anthropic] — the Messages API
//
// Each adapter embeds [github.com/germanamz/localmcp/pkg/modeladapter.ModelAdapter].
package providers
