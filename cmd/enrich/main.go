// The enrich job fetches extended detail for stale profiles from the
// secondary feed, bounded by a per-run request budget and a rate limit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rtbcli/internal/config"
	"rtbcli/internal/enrich"
	"rtbcli/internal/feed"
	"rtbcli/internal/infrastructure"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

func main() {
	limit := flag.Int("limit", 0, "override the per-run request budget")
	reset := flag.Bool("reset", false, "ignore the re-fetch threshold and consider every profile")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 {
		cfg.Enrich.Budget = *limit
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

	enricher := enrich.New(st, reg, feed.NewClient(cfg.Feed, logger), cfg.Enrich, logger)
	enricher.Reset = *reset

	if _, err := enricher.Run(context.Background(), time.Now()); err != nil {
		logger.Error("enrichment failed", slog.Any("error", err))
		os.Exit(1)
	}
}
