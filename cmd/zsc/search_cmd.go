// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"
)

// runSearchCLI fetches search results for one keyword and prints the
// snapshot document. With --save the document is also written to the
// snapshot directory, exactly as a scheduled refresh would.
func runSearchCLI(args []string) int {
	fs := flag.NewFlagSet("zsc search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var configPath string
	var save bool
	var noFetch bool
	var format string
	fs.StringVar(&configPath, "config", "", "path to config file (YAML)")
	fs.BoolVar(&save, "save", false, "write the snapshot to the snapshot directory")
	fs.BoolVar(&noFetch, "no-fetch", false, "keep the API snippets, skip fetching result pages")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	keyword := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if keyword == "" {
		fmt.Fprintln(os.Stderr, "Usage: zsc search [--save] [--no-fetch] [--format yaml|json] KEYWORD")
		return 2
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if noFetch {
		cfg.Fetch.Enabled = false
	}
	if cfg.Search.APIKey == "" || cfg.Search.EngineID == "" {
		fmt.Fprintln(os.Stderr, "Error: search credentials are not configured (set ZSC_GOOGLE_API_KEY and ZSC_GOOGLE_CSE_ID)")
		return 1
	}

	runner, cleanup, err := buildRunner(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	doc, path, err := runner.SnapshotOnce(ctx, keyword, save)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Search failed: %v\n", err)
		return 1
	}

	if path != "" {
		fmt.Fprintf(os.Stderr, "✅ Snapshot written: %s\n", path)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
	return 0
}
