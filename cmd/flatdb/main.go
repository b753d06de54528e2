package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/leengari/flatdb/internal/config"
	"github.com/leengari/flatdb/internal/engine"
	"github.com/leengari/flatdb/internal/logging"
	"github.com/leengari/flatdb/internal/repl"
)

func main() {
	configPath := flag.String("config", "flatdb.yaml", "Path to the config file")
	dataDir := flag.String("data", "", "Data directory (overrides config)")
	verbose := flag.Bool("verbose", false, "Log every operation lifecycle event")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger, closeFn := logging.Setup(cfg.Logging)
	defer closeFn()
	slog.SetDefault(logger)

	eng, err := engine.New(cfg, logger)
	if err != nil {
		slog.Error("failed to open engine", "error", err)
		os.Exit(1)
	}

	if *verbose {
		eng.AddObserver(engine.NewLoggingObserver(logger))
	}

	slog.Info("flatdb ready",
		slog.String("data_dir", cfg.DataDir),
		slog.Bool("file_locks", cfg.Lock.FileLocks),
	)

	repl.Start(eng)
}
