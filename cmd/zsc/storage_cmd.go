// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
	"github.com/tsuyama1990/vc-testing/internal/version"
)

func runStorageCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStorageUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runStorageVerify(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printStorageUsage(os.Stderr)
		return 2
	}
}

func printStorageUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  zsc storage verify [--path PATH] [--mode quick|full]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --path string  Path to a SQLite database file (default: the configured history database)")
	fmt.Fprintln(w, "  --mode string  Verification mode: quick (default) or full")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "  verify    Check database integrity")
}

func runStorageVerify(args []string) int {
	fs := flag.NewFlagSet("zsc storage verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var path string
	var mode string
	fs.StringVar(&path, "path", "", "Path to the SQLite database file")
	fs.StringVar(&mode, "mode", "quick", "Verification mode: quick or full")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "quick" && mode != "full" {
		fmt.Fprintf(os.Stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}

	if path == "" {
		// Resolve the configured database the same way the daemon would.
		loader := config.NewLoader(config.DefaultConfigPath(), version.Version)
		cfg, err := loader.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot resolve database path from configuration: %v\n", err)
			return 2
		}
		path = cfg.Store.Path
	}

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: database %s not found: %v\n", path, err)
		return 2
	}

	return doVerify(path, mode)
}

func doVerify(path, mode string) int {
	fmt.Fprintf(os.Stderr, "🔍 Verifying integrity of %s (mode: %s)...\n", path, mode)

	issues, err := sqlite.VerifyIntegrity(path, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Verification interrupted by system error: %v\n", err)
		return 1
	}

	if issues != nil {
		fmt.Fprintln(os.Stderr, "🚨 CORRUPTION DETECTED!")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return 1
	}

	fmt.Println("✅ Integrity Verified: ok")
	return 0
}
