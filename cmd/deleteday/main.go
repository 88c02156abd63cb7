// The deleteday job removes one calendar date from every dependent file:
// profile histories, stat bucket series, movers and the available-days
// index. Corrective tool for bad feed days.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"rtbcli/internal/config"
	"rtbcli/internal/infrastructure"
	"rtbcli/internal/registry"
	"rtbcli/internal/report"
	"rtbcli/internal/store"
)

func main() {
	date := flag.String("date", "", "date to delete (YYYY-MM-DD)")
	flag.Parse()

	if *date == "" {
		fmt.Fprintln(os.Stderr, "Error: --date is required")
		flag.Usage()
		os.Exit(1)
	}

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

	if err := report.DeleteDay(st, reg, *date, logger); err != nil {
		logger.Error("delete day failed", slog.Any("error", err))
		os.Exit(1)
	}
}
