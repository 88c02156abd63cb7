// The annual job computes yearly rank and net worth rollups for every
// profile and merges them into the per-profile annual documents.
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
	year := flag.Int("year", time.Now().Year()-1, "calendar year to report on")
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

	if _, err := report.Annual(st, reg, *year, logger); err != nil {
		logger.Error("annual report failed", slog.Any("error", err))
		os.Exit(1)
	}
}
