// The rename job moves a profile to a new canonical URI and records an
// alias for the old one. Usage: rename FROM TO
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"rtbcli/internal/config"
	"rtbcli/internal/infrastructure"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

func main() {
	flag.Parse()
	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: rename FROM TO")
		os.Exit(1)
	}
	from := strings.ToLower(flag.Arg(0))
	to := strings.ToLower(flag.Arg(1))

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

	reg, err := registry.Load(store.New(cfg.Paths.DataDir), logger)
	if err != nil {
		logger.Error("failed to load registry", slog.Any("error", err))
		os.Exit(1)
	}

	if err := reg.Rename(from, to); err != nil {
		logger.Error("rename failed", slog.Any("error", err))
		os.Exit(1)
	}
}
