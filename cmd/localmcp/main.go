package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/localmcp/cmd/localmcp/internal/tui"
	"github.com/germanamz/localmcp/pkg/config"
	"github.com/germanamz/localmcp/pkg/engine"
	"github.com/germanamz/localmcp/pkg/httpapi"
	"github.com/germanamz/localmcp/pkg/tools/mcpserver"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const version = "0.1.0"

type options struct {
	configPath string
	addr       string
	query      string
	noTUI      bool
	mcp        bool
	logLevel   string
	logFile    string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: localmcp [flags]\n\nRoute natural language queries to local MCP servers over HTTP and an interactive prompt.\n\nFlags:\n")
		flag.PrintDefaults()
	}

	var opts options
	flag.StringVar(&opts.configPath, "config", "mcp_config.json", "path to configuration file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.StringVar(&opts.addr, "addr", ":7861", "HTTP listen address")
	flag.BoolVar(&opts.noTUI, "no-tui", false, "serve HTTP only, without the interactive prompt")
	flag.StringVar(&opts.query, "query", "", "answer a single query, print it and exit")
	flag.BoolVar(&opts.mcp, "mcp", false, "serve the query tool over MCP on stdin/stdout instead of HTTP")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	interactive := opts.query == "" && !opts.mcp && !opts.noTUI && term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int

	log, closeLog, err := newLogger(opts.logLevel, opts.logFile, interactive)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	eng, err := engine.New(cfg, log)
	if err != nil {
		return err
	}

	if opts.query != "" {
		doc, err := eng.Handle(ctx, opts.query)
		if err != nil {
			return err
		}
		fmt.Println(doc)
		return nil
	}

	if opts.mcp {
		srv := mcpserver.New("localmcp", version)
		srv.Register(mcpserver.QueryTool(eng.Handle))
		log.InfoContext(ctx, "serving MCP on stdio")
		return srv.Serve(ctx, os.Stdin, os.Stdout)
	}

	return serve(ctx, eng, opts.addr, interactive, log)
}

// serve runs the HTTP server and, when interactive, the terminal UI. Quitting
// the UI stops the server.
func serve(ctx context.Context, eng *engine.Engine, addr string, interactive bool, log *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	defer stop()

	srv := httpapi.NewServer(eng, log)
	g.Go(func() error {
		return srv.Start(gctx, addr)
	})

	if interactive {
		g.Go(func() error {
			defer stop()
			return tui.Run(gctx, eng.Handle)
		})
	}

	return g.Wait()
}
