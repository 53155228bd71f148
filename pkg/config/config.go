// Package config loads the backend configuration document: the LLM
// descriptor and the ordered set of MCP tool backends a query can be routed
// to. A loaded Config is never mutated and may be shared across goroutines.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxIterations bounds the agent's ReAct loop when the document does
// not set max_iterations.
const DefaultMaxIterations = 10

// Config is the top-level configuration document.
type Config struct {
	LLM           LLM      `yaml:"llm"`
	Backends      Backends `yaml:"mcpServers"`
	Timeout       Duration `yaml:"timeout"`        // Per-query limit (0 = none).
	MaxIterations int      `yaml:"max_iterations"` // ReAct loop limit.
}

// Backend describes one MCP tool server and how queries reach it.
type Backend struct {
	Key           string            `yaml:"-"` // Set from the mcpServers mapping key.
	Command       string            `yaml:"command"`
	Args          []string          `yaml:"args"`
	Cwd           string            `yaml:"cwd"`
	Env           map[string]string `yaml:"env"`
	Lines         []string          `yaml:"instructions"`
	Keywords      []string          `yaml:"keywords"`
	FormatHexKeys bool              `yaml:"format_hex_keys"`
	AddressKeys   []string          `yaml:"address_keys"`
}

// Instructions returns the instruction lines joined into one block.
func (b Backend) Instructions() string {
	return strings.Join(b.Lines, "\n")
}

// Backends is the mcpServers mapping in document order. The first entry is
// the fallback backend.
type Backends []Backend

// UnmarshalYAML decodes a mapping node while keeping its key order.
func (bs *Backends) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("mcpServers: expected a mapping, got %s", kindName(node.Kind))
	}

	out := make(Backends, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		var b Backend
		if err := valueNode.Decode(&b); err != nil {
			return fmt.Errorf("mcpServers: %q: %w", keyNode.Value, err)
		}
		b.Key = keyNode.Value
		out = append(out, b)
	}

	*bs = out
	return nil
}

// Duration is a time.Duration written as a Go duration string ("90s", "2m").
type Duration time.Duration

// UnmarshalYAML parses a duration string. A bare integer is taken as seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}

	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads the document at path, expands ${VAR} references from the
// environment and parses it. JSON documents are accepted as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return nil, &Error{Reason: "load", Err: err}
	}

	return Parse(expandEnv(data))
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} with the value of the environment variable NAME.
// A bare $ is left alone so env values, args and instructions keep it.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &Error{Reason: "parse", Err: err}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}

	for i := range c.Backends {
		b := &c.Backends[i]
		keywords := b.Keywords[:0]
		for _, kw := range b.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		b.Keywords = keywords
	}
}

// Validate checks that the configuration is internally consistent. Every
// failure is an *Error.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return newError("llm: model is required")
	}
	if c.LLM.Kind == "" {
		return newError("llm: kind is required")
	}
	if c.MaxIterations < 0 {
		return newError("max_iterations must not be negative")
	}
	if c.Timeout < 0 {
		return newError("timeout must not be negative")
	}

	if len(c.Backends) == 0 {
		return newError("mcpServers: at least one backend is required")
	}

	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Key == "" {
			return newError("mcpServers: backend key is required")
		}
		if _, dup := seen[b.Key]; dup {
			return newError(fmt.Sprintf("mcpServers: duplicate backend %q", b.Key))
		}
		seen[b.Key] = struct{}{}

		if strings.TrimSpace(b.Command) == "" {
			return newError(fmt.Sprintf("mcpServers: %q: command is required", b.Key))
		}
	}

	return nil
}

// Lookup returns the backend with the given key.
func (c *Config) Lookup(key string) (Backend, bool) {
	for _, b := range c.Backends {
		if b.Key == key {
			return b, true
		}
	}
	return Backend{}, false
}

// Fallback returns the first backend.
func (c *Config) Fallback() Backend {
	return c.Backends[0]
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
