package router

import (
	"testing"

	"github.com/germanamz/localmcp/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte(`{
  "llm": "ollama/qwen2.5",
  "mcpServers": {
    "sensors": {"command": "sensors-mcp", "keywords": ["sample", "sensor"]},
    "binja": {"command": "binja-mcp", "keywords": ["Disassembly", "pseudocode", "function"]},
    "files": {"command": "files-mcp", "keywords": ["function", "file"]},
    "quiet": {"command": "quiet-mcp"}
  }
}`))
	require.NoError(t, err)

	return cfg
}

func TestSelectBackend(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"keyword match", "show me the disassembly and pseudocode of _main", "binja"},
		{"case insensitive query", "SHOW THE DISASSEMBLY", "binja"},
		{"substring of a longer word", "list all sensors", "sensors"},
		{"first match in configuration order wins", "which function reads this file", "binja"},
		{"no match falls back", "get taginfo for redline", "sensors"},
		{"empty query falls back", "", "sensors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectBackend(tt.query, cfg))
		})
	}
}

func TestSelectBackendNeverUnknown(t *testing.T) {
	cfg := testConfig(t)

	for _, q := range []string{"file", "pseudocode", "zzz", "Sample", "quiet"} {
		_, ok := cfg.Lookup(SelectBackend(q, cfg))
		assert.True(t, ok, q)
	}
}

func TestSelectBackendKeywordlessReachableOnlyAsFallback(t *testing.T) {
	cfg, err := config.Parse([]byte(`{
  "llm": "ollama/m",
  "mcpServers": {
    "default": {"command": "a"},
    "binja": {"command": "b", "keywords": ["disassembly"]}
  }
}`))
	require.NoError(t, err)

	assert.Equal(t, "default", SelectBackend("default please", cfg))
	assert.Equal(t, "binja", SelectBackend("disassembly of main", cfg))
}
