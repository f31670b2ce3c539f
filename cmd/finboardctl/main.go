package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	"finboard/internal/cli"
	applog "finboard/internal/log"
)

func main() {
	cli.LoadEnvFile()

	open := func(ctx context.Context) (*cli.Env, error) {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return nil, err
		}
		// Command output goes to stdout, so logs go to stderr and only from warn up
		// unless debugging.
		level := applog.ParseLevel(cfg.LogLevel)
		if level < slog.LevelWarn && level != slog.LevelDebug {
			level = slog.LevelWarn
		}
		logger := applog.New(applog.Config{
			Level:   level,
			Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		})
		rt, err := cli.Bootstrap(ctx, cfg, logger, cli.BootstrapOptions{Broker: true})
		if err != nil {
			return nil, err
		}
		return &cli.Env{
			Ledger:   rt.Ledger,
			Exporter: rt.Exporter,
			Close:    rt.Close,
		}, nil
	}

	if err := cli.NewRootCommand(open).Execute(); err != nil {
		os.Exit(1)
	}
}
