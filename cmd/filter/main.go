// The filter job re-derives every filter index from the full registry.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rtbcli/internal/aggregate"
	"rtbcli/internal/config"
	"rtbcli/internal/infrastructure"
	"rtbcli/internal/registry"
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

	if err := aggregate.New(st, logger).WriteFilters(reg, time.Now()); err != nil {
		logger.Error("filter generation failed", slog.Any("error", err))
		os.Exit(1)
	}
}
