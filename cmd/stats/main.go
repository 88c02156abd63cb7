// The stats job rebuilds the demographic stat documents from the full
// profile registry.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rtbcli/internal/config"
	"rtbcli/internal/infrastructure"
	"rtbcli/internal/registry"
	"rtbcli/internal/report"
	"rtbcli/internal/store"
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	st := store.New(cfg.Paths.DataDir)
	reg, err := registry.Load(st, logger)
	if err != nil {
		logger.Error("failed to load registry", slog.Any("error", err))
		os.Exit(1)
	}
	if reg.Len() == 0 {
		logger.Error("no profiles found, run update first")
		os.Exit(1)
	}

	if err := report.Demographics(st, reg, time.Now(), logger); err != nil {
		logger.Error("stats generation failed", slog.Any("error", err))
		os.Exit(1)
	}
}
