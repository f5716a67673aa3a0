package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/secretdb/internal/cli"
	"github.com/dmitrijs2005/secretdb/internal/config"
	"github.com/dmitrijs2005/secretdb/internal/logging"
)

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	log := logging.NewSlogLogger(slog.New(handler))

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "secretdb:", err)
		os.Exit(1)
	}

	if err := cli.NewApp(cfg, log).Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "secretdb:", err)
		os.Exit(1)
	}
}
