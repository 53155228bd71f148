package engine

import (
	"fmt"
	"sync"

	"github.com/germanamz/localmcp/pkg/config"
	"github.com/germanamz/localmcp/pkg/modeladapter"
	"github.com/germanamz/localmcp/pkg/providers/anthropic"
	"github.com/germanamz/localmcp/pkg/providers/ollama"
	"github.com/germanamz/localmcp/pkg/providers/openai"
)

// ProviderFactory creates a Completer from the LLM descriptor.
type ProviderFactory func(cfg config.LLM) (modeladapter.Completer, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]ProviderFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories["ollama"] = newOllama
		factories["openai"] = newOpenAI
		factories["anthropic"] = newAnthropic
	})
}

// RegisterProvider registers a custom provider factory under the given kind.
// It can be called before New to extend the engine with additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// getFactory returns the factory for the given kind.
func getFactory(kind string) (ProviderFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

func newOllama(cfg config.LLM) (modeladapter.Completer, error) {
	a := ollama.New(cfg.BaseURL, cfg.Model)
	a.Temperature = cfg.Temperature
	a.MaxTokens = cfg.MaxTokens

	return a, nil
}

func newOpenAI(cfg config.LLM) (modeladapter.Completer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openai.DefaultBaseURL
	}

	a := openai.New(baseURL, cfg.APIKey, cfg.Model)
	a.Temperature = cfg.Temperature
	a.MaxTokens = cfg.MaxTokens

	return a, nil
}

func newAnthropic(cfg config.LLM) (modeladapter.Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("engine: anthropic: api_key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropic.DefaultBaseURL
	}

	a := anthropic.New(baseURL, cfg.APIKey, cfg.Model)
	a.Temperature = cfg.Temperature
	if cfg.MaxTokens > 0 {
		a.MaxTokens = cfg.MaxTokens
	}

	return a, nil
}

// buildCompleter creates a Completer from the LLM descriptor using the
// registered factory for its Kind.
func buildCompleter(cfg config.LLM) (modeladapter.Completer, error) {
	factory, ok := getFactory(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("engine: unknown provider kind %q", cfg.Kind)
	}

	return factory(cfg)
}
