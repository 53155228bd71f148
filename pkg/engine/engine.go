package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/germanamz/localmcp/pkg/agent"
	"github.com/germanamz/localmcp/pkg/agentctx"
	"github.com/germanamz/localmcp/pkg/config"
	"github.com/germanamz/localmcp/pkg/format"
	"github.com/germanamz/localmcp/pkg/router"
	"github.com/germanamz/localmcp/pkg/tools/mcpclient"
	"github.com/google/uuid"
)

// Engine answers queries against the configured backends. It is safe for
// concurrent use.
type Engine struct {
	cfg     *config.Config
	log     *slog.Logger
	connect Connector
}

// New creates an Engine. It validates cfg and checks that its LLM kind has a
// registered provider; both failures are *config.Error. A nil log discards
// output.
func New(cfg *config.Config, log *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, &config.Error{Reason: "missing configuration"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, ok := getFactory(cfg.LLM.Kind); !ok {
		return nil, &config.Error{Reason: fmt.Sprintf("llm: unknown kind %q", cfg.LLM.Kind)}
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		cfg:     cfg,
		log:     log,
		connect: mcpclient.New,
	}, nil
}

// Config returns the engine's configuration. It must not be modified.
func (e *Engine) Config() *config.Config { return e.cfg }

// Handle routes query to a backend, runs an agent bound to it and returns the
// formatted markdown answer. An agent that finishes without an answer, or
// gives up after MaxIterations, yields format.NoResultDocument. Backend and
// model failures are returned as errors.
func (e *Engine) Handle(ctx context.Context, query string) (string, error) {
	id := uuid.NewString()
	ctx = agentctx.WithQueryID(ctx, id)
	log := e.log.With("query_id", id)

	start := time.Now()
	key := router.SelectBackend(query, e.cfg)
	log.InfoContext(ctx, "query routed", "backend", key)

	b, err := e.Bind(ctx, key)
	if err != nil {
		log.ErrorContext(ctx, "bind failed", "backend", key, "error", err)
		return "", err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WarnContext(ctx, "close backend", "backend", key, "error", err)
		}
	}()

	raw, err := b.Invoke(ctx, query)
	if errors.Is(err, agent.ErrMaxIterations) {
		log.WarnContext(ctx, "agent gave up", "backend", key, "max_iterations", e.cfg.MaxIterations)
		raw, err = "", nil
	}
	if err != nil {
		log.ErrorContext(ctx, "query failed", "backend", key, "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("engine: invoke %q: %w", key, err)
	}

	if strings.TrimSpace(raw) == "" {
		log.WarnContext(ctx, "agent returned no result", "backend", key)
	}

	if tc, ok := b.Usage(); ok {
		log.DebugContext(ctx, "token usage", "input", tc.InputTokens, "output", tc.OutputTokens)
	}

	doc := format.Formatter{
		FormatHexKeys: b.Backend.FormatHexKeys,
		AddressKeys:   b.Backend.AddressKeys,
	}.Format(raw)

	log.InfoContext(ctx, "query answered", "backend", key, "duration", time.Since(start))

	return doc, nil
}
