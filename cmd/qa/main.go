package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/factoid-qa/internal/adapters/cli"
	"github.com/kirillkom/factoid-qa/internal/bootstrap"
	"github.com/kirillkom/factoid-qa/internal/config"
	"github.com/kirillkom/factoid-qa/internal/observability/logging"
)

const serviceName = "qa"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pipeline *bootstrap.Pipeline
	load := func(ctx context.Context) (*cli.Services, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger := logging.NewLogger(os.Stderr, serviceName, cfg.LogLevel)
		slog.SetDefault(logger)

		pipeline, err = bootstrap.NewPipeline(ctx, cfg, logger, nil)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Classifier:   pipeline.Classifier,
			Reformulator: pipeline.Reformulator,
			Answerer:     pipeline.Answerer,
			Evaluator:    pipeline.Evaluator,
			Concurrency:  cfg.EvalConcurrency,
		}, nil
	}

	root := cli.NewRootCommand(load)
	root.SetOut(os.Stdout)
	err := root.ExecuteContext(ctx)
	if pipeline != nil {
		_ = pipeline.Close(context.Background())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
