// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/version"
)

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage()
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:])
	case "dump":
		return runConfigDump(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  zsc config validate [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  zsc config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("zsc config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	loader := config.NewLoader(configPath, version.Version)
	if _, err := loader.Load(); err != nil {
		if configPath != "" {
			fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		} else {
			fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
		}
		return 1
	}

	if configPath != "" {
		fmt.Printf("✓ %s is valid\n", configPath)
	} else {
		fmt.Println("✓ configuration is valid (environment and defaults only)")
	}
	return 0
}

func runConfigDump(args []string) int {
	fs := flag.NewFlagSet("zsc config dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	var format string
	var effective bool

	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !effective {
		fmt.Fprintln(os.Stderr, "Error: --effective is required")
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	redactSecrets(&cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

// redactSecrets masks credentials before the config leaves the process.
func redactSecrets(cfg *config.AppConfig) {
	if cfg.Server.APIToken != "" {
		cfg.Server.APIToken = "***"
	}
	if cfg.Search.APIKey != "" {
		cfg.Search.APIKey = "***"
	}
	if cfg.Classify.APIKey != "" {
		cfg.Classify.APIKey = "***"
	}
	if cfg.Cache.RedisPassword != "" {
		cfg.Cache.RedisPassword = "***"
	}
}
