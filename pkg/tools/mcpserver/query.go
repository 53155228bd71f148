package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/localmcp/pkg/tools/toolbox"
)

// QueryToolName is the name of the tool built by QueryTool.
const QueryToolName = "query"

var querySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Natural language request; it is routed to a backend by keyword."}
  },
  "required": ["query"]
}`)

// QueryTool returns a tool that answers {"query": "..."} with handle.
func QueryTool(handle func(ctx context.Context, query string) (string, error)) toolbox.Tool {
	return toolbox.Tool{
		Name:        QueryToolName,
		Description: "Answer a request with the best matching local MCP backend and return a markdown report.",
		InputSchema: querySchema,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("query: invalid input: %w", err)
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", errors.New("query: query is required")
			}

			return handle(ctx, in.Query)
		},
	}
}
