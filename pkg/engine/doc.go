// Package engine answers queries. It routes each query to an MCP tool
// backend, binds a fresh agent to that backend, runs it and formats the
// answer. Frontends (HTTP, terminal UI, one-shot CLI) call Engine.Handle and
// never import lower-level packages directly.
//
// Every call to Handle is independent: it spawns its own backend process,
// builds its own completer and tears both down before returning. The only
// shared state is the read-only configuration.
package engine
