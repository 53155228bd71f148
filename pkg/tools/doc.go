// Package tools connects agents to MCP tool backends and exposes the
// orchestrator as an MCP server.
//
//   - [github.com/germanamz/localmcp/pkg/tools/toolbox] — the Tool type and the ToolBox an agent calls into
//   - [github.com/germanamz/localmcp/pkg/tools/mcpclient] — spawns an MCP server process and exposes its tools as a ToolBox
//   - [github.com/germanamz/localmcp/pkg/tools/mcpserver] — serves toolbox tools, including the query tool, over stdio
//
// Both mcpclient and mcpserver are thin wrappers around the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
package tools
