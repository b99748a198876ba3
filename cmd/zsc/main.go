// SPDX-License-Identifier: MIT

// Command zsc runs the keyword snapshot and classification service.
// Without a subcommand it starts the daemon; subcommands cover config
// inspection, one-shot pipeline runs and operational checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/daemon"
	zsclog "github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "search":
			os.Exit(runSearchCLI(os.Args[2:]))
		case "classify":
			os.Exit(runClassifyCLI(os.Args[2:]))
		case "status":
			os.Exit(runStatusCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		case "storage":
			os.Exit(runStorageCLI(os.Args[2:]))
		case "version":
			fmt.Printf("zsc %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
			os.Exit(0)
		case "help", "-h", "--help":
			printUsage(os.Stdout)
			os.Exit(0)
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("zsc %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectivePath := strings.TrimSpace(*configPath)
	if effectivePath == "" {
		effectivePath = config.DefaultConfigPath()
	}

	d, err := daemon.New(ctx, daemon.Options{
		ConfigPath: effectivePath,
		Version:    version.Version,
	})
	if err != nil {
		failLogger := zsclog.WithComponent("main")
		failLogger.Fatal().
			Err(err).
			Str("event", "startup.failed").
			Str("config_path", effectivePath).
			Msg("daemon initialisation failed")
	}

	logger := zsclog.WithComponent("main")
	cfg := d.Config()

	if effectivePath != "" {
		logger.Info().Str("event", "config.loaded").Str("source", "file").Str("path", effectivePath).Msg("loaded configuration from file")
	} else {
		logger.Info().Str("event", "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Msg("starting zsc")
	logger.Info().Msgf("→ Listen: %s", cfg.Server.Listen)
	logger.Info().Msgf("→ Data dir: %s", cfg.Data.Dir)
	logger.Info().Msgf("→ Snapshots: %s", cfg.SnapshotPath())
	if cfg.Refresh.Interval > 0 {
		logger.Info().Msgf("→ Refresh: every %s (initial: %v)", cfg.Refresh.Interval, cfg.Refresh.Initial)
	} else {
		logger.Info().Msg("→ Refresh: manual triggers only (API or CLI)")
	}
	if cfg.Classify.Enabled {
		logger.Info().Msgf("→ Classifier: %s (%d categories)", cfg.Classify.Model, len(cfg.Classify.Categories))
	} else {
		logger.Info().Msg("→ Classifier: disabled for scheduled runs")
	}
	logger.Info().Msgf("→ Cache: %s", cfg.Cache.Backend)
	switch {
	case cfg.Server.APIToken != "":
		logger.Info().Msg("→ API token: configured")
	case cfg.Server.AllowAnonymous:
		logger.Warn().Str("security", "weak").Msg("→ API token: anonymous access enabled. Set ZSC_API_TOKEN for production use.")
	default:
		logger.Warn().Msg("→ API token: NOT configured. API requests will be rejected until ZSC_API_TOKEN is set.")
	}

	if err := d.Run(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  zsc [--config FILE]                start the daemon")
	fmt.Fprintln(w, "  zsc --version                      print version and exit")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "  config validate|dump               inspect configuration")
	fmt.Fprintln(w, "  search KEYWORD                     fetch results for one keyword")
	fmt.Fprintln(w, "  classify KEYWORD                   classify one keyword")
	fmt.Fprintln(w, "  status                             query a running daemon")
	fmt.Fprintln(w, "  healthcheck                        probe daemon liveness or readiness")
	fmt.Fprintln(w, "  storage verify                     check database integrity")
	fmt.Fprintln(w, "  version                            print version and exit")
}
