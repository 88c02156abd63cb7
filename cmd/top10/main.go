// The top10 job builds the month-by-month top ten digest from the recorded
// ranked lists.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"rtbcli/internal/config"
	"rtbcli/internal/infrastructure"
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

	if err := report.Top10(store.New(cfg.Paths.DataDir), logger); err != nil {
		logger.Error("top 10 generation failed", slog.Any("error", err))
		os.Exit(1)
	}
}
