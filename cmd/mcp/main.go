package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/grounded-chat/internal/adapters/mcp"
	"github.com/kirillkom/grounded-chat/internal/bootstrap"
	"github.com/kirillkom/grounded-chat/internal/config"
	"github.com/kirillkom/grounded-chat/internal/observability/logging"
)

// The MCP server speaks JSON-RPC on stdout, so logs go to stderr.
func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	slog.SetDefault(logging.New(os.Stderr, logging.ServiceMCP, cfg.LogLevel))
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{ClientName: "gchat-mcp"})
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.Chat, app.Retriever, app.Threads)
	if err := mcpadapter.ServeStdio(ctx, tools); err != nil && ctx.Err() == nil {
		slog.Error("mcp_server_error", "error", err)
		app.Close()
		os.Exit(1)
	}
}
