// The update job runs the daily pipeline: fetch the ranking feed, reconcile
// every record into the profile store, then rebuild the aggregate views.
// Exits non-zero when the pipeline already ran for the current date.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rtbcli/internal/aggregate"
	"rtbcli/internal/config"
	"rtbcli/internal/domain"
	"rtbcli/internal/feed"
	"rtbcli/internal/infrastructure"
	"rtbcli/internal/reconcile"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

func main() {
	dataDir := flag.String("data", "", "content root (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		if errors.Is(err, domain.ErrAlreadyUpdated) {
			logger.Warn("update already ran today, nothing to do")
			os.Exit(1)
		}
		logger.Error("update failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	now := time.Now()

	st := store.New(cfg.Paths.DataDir)
	reg, err := registry.Load(st, logger)
	if err != nil {
		return err
	}

	client := feed.NewClient(cfg.Feed, logger)
	reconciler := reconcile.New(st, reg, client, cfg.Blacklist, logger)

	result, err := reconciler.Run(ctx, now)
	if err != nil {
		return err
	}

	agg := aggregate.New(st, logger)
	if err := agg.WriteStats(result.Date, result.Stats); err != nil {
		return err
	}
	if err := agg.WriteMovers(result.Date, result.Movers); err != nil {
		return err
	}
	return agg.WriteFilters(reg, now)
}
