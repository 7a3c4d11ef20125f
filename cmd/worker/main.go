package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sheepyard/internal/app/bootstrap"
	"sheepyard/internal/platform/config"
)

// Worker process entrypoint.
// Data flow:
// 1) Parse flags and load config.
// 2) Build app wiring.
// 3) Tick the deadline scheduler until SIGINT/SIGTERM.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sheepyard worker: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags("sheepyard-worker", args, os.Stderr)
	if err != nil {
		return err
	}
	if flags.Help {
		return nil
	}
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	cfg = flags.Apply(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap worker: %w", err)
	}
	defer app.Close()

	return app.Run(ctx)
}
