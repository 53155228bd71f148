package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultKind is the provider used when the llm descriptor names only a model.
const DefaultKind = "ollama"

// LLM describes the language model the agent talks to.
//
// It is written either as a "<kind>/<model>" string:
//
//	"llm": "ollama/qwen2.5"
//
// or as a mapping:
//
//	"llm": {"kind": "openai", "model": "gpt-4o-mini", "api_key": "${OPENAI_API_KEY}"}
type LLM struct {
	Kind        string  `yaml:"kind"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// UnmarshalYAML accepts the scalar and mapping forms.
func (l *LLM) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = ParseLLM(node.Value)
		return nil

	case yaml.MappingNode:
		type plain LLM
		var p plain
		if err := node.Decode(&p); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
		*l = LLM(p)
		l.Kind = strings.ToLower(strings.TrimSpace(l.Kind))
		if l.Kind == "" && l.Model != "" {
			l.Kind = DefaultKind
		}
		return nil
	}

	return fmt.Errorf("llm: expected a string or a mapping, got %s", kindName(node.Kind))
}

// ParseLLM parses the "<kind>/<model>" shorthand. Only the first slash
// separates the kind, so "openai/meta-llama/Llama-3-8B" keeps the rest as the
// model name. A value without a slash is a model for DefaultKind.
func ParseLLM(s string) LLM {
	s = strings.TrimSpace(s)
	if s == "" {
		return LLM{}
	}

	kind, model, ok := strings.Cut(s, "/")
	if !ok {
		return LLM{Kind: DefaultKind, Model: s}
	}

	return LLM{Kind: strings.ToLower(kind), Model: model}
}

// String renders the descriptor in its shorthand form.
func (l LLM) String() string {
	return l.Kind + "/" + l.Model
}
