package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/factoid-qa/internal/adapters/mcp"
	"github.com/kirillkom/factoid-qa/internal/bootstrap"
	"github.com/kirillkom/factoid-qa/internal/config"
	"github.com/kirillkom/factoid-qa/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// stdout carries JSON-RPC.
	logger := logging.NewLogger(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, logger, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer func() { _ = pipeline.Close(context.Background()) }()

	server, err := mcpadapter.NewServer(&mcpadapter.Ports{
		Classifier:   pipeline.Classifier,
		Reformulator: pipeline.Reformulator,
		Answerer:     pipeline.Answerer,
	}, logger)
	if err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
