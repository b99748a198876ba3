// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tsuyama1990/vc-testing/internal/classify"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/gemini"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
	"github.com/tsuyama1990/vc-testing/internal/snapshot"
)

// evidenceLimit caps how many snippets feed the prompt, matching the
// refresh pipeline.
const evidenceLimit = 3

// runClassifyCLI classifies one keyword. By default it runs the full
// search-then-classify pipeline; --from-snapshot reuses the evidence of
// an existing snapshot file instead of searching again.
func runClassifyCLI(args []string) int {
	fs := flag.NewFlagSet("zsc classify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var configPath string
	var categoriesFlag string
	var fromSnapshot string
	var keywordOnly bool
	var persist bool
	var asJSON bool
	fs.StringVar(&configPath, "config", "", "path to config file (YAML)")
	fs.StringVar(&categoriesFlag, "categories", "", "comma-separated category candidates (default: configured list)")
	fs.StringVar(&fromSnapshot, "from-snapshot", "", "classify from an existing snapshot file instead of searching")
	fs.BoolVar(&keywordOnly, "keyword-only", false, "classify from the keyword alone, without search evidence")
	fs.BoolVar(&persist, "persist", false, "write the snapshot and record the decision in the history database")
	fs.BoolVar(&asJSON, "json", false, "print the result as JSON")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if cfg.Classify.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: gemini api key is not configured (set ZSC_GEMINI_API_KEY or gemini.api_key in keys.yaml)")
		return 1
	}

	categories := splitCategories(categoriesFlag)
	if len(categories) == 0 {
		categories = cfg.Classify.Categories
	}
	if len(categories) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no categories configured (use --categories or classify.categories)")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fromSnapshot != "" {
		if keywordOnly {
			fmt.Fprintln(os.Stderr, "Error: --from-snapshot and --keyword-only are mutually exclusive")
			return 2
		}
		if len(fs.Args()) > 0 {
			fmt.Fprintln(os.Stderr, "Error: --from-snapshot takes the keyword from the snapshot file")
			return 2
		}
		return classifyFromSnapshot(ctx, cfg, fromSnapshot, categories, asJSON)
	}

	keyword := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if keyword == "" {
		fmt.Fprintln(os.Stderr, "Usage: zsc classify [--persist] [--categories a,b] KEYWORD")
		return 2
	}

	if keywordOnly {
		if persist {
			fmt.Fprintln(os.Stderr, "Error: --persist needs snapshot evidence, drop --keyword-only")
			return 2
		}
		engine := classify.New(gemini.New(cfg.Classify))
		out, err := engine.Classify(ctx, keyword, categories, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Classification failed: %v\n", err)
			return 1
		}
		return emitOutcome(out, asJSON)
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

	res, err := runner.ClassifyOnce(ctx, keyword, categories, persist)
	if err != nil {
		if errors.Is(err, jobs.ErrNoClassifier) {
			fmt.Fprintln(os.Stderr, "Error: classifier is not configured on this instance")
		} else {
			fmt.Fprintf(os.Stderr, "❌ Classification failed: %v\n", err)
		}
		return 1
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	printLabel(res.Keyword, res.Label, res.Matched, res.Model)
	if res.SnapshotPath != "" {
		fmt.Fprintf(os.Stderr, "✅ Snapshot written: %s\n", res.SnapshotPath)
	}
	return 0
}

// classifyFromSnapshot feeds stored snapshot evidence straight into the
// classifier, without touching the search API or the stores.
func classifyFromSnapshot(ctx context.Context, cfg config.AppConfig, path string, categories []string, asJSON bool) int {
	doc, err := snapshot.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	evidence := make([]string, 0, evidenceLimit)
	for _, entry := range doc.Results {
		if s := strings.TrimSpace(entry.Snippet); s != "" {
			evidence = append(evidence, s)
		}
		if len(evidence) == evidenceLimit {
			break
		}
	}

	engine := classify.New(gemini.New(cfg.Classify))
	out, err := engine.Classify(ctx, doc.Keyword, categories, evidence)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Classification failed: %v\n", err)
		return 1
	}

	if !asJSON {
		fmt.Fprintf(os.Stderr, "Using snapshot %s (%s, %d results)\n", path, doc.SnapshotDate, len(doc.Results))
	}
	return emitOutcome(out, asJSON)
}

func emitOutcome(out *classify.Outcome, asJSON bool) int {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}
	printLabel(out.Keyword, out.Label, out.Matched, out.Model)
	return 0
}

func splitCategories(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printLabel(keyword, label string, matched bool, model string) {
	marker := "✅"
	if !matched {
		marker = "⚠️ "
	}
	if model != "" {
		fmt.Printf("%s %s → %s (model: %s)\n", marker, keyword, label, model)
	} else {
		fmt.Printf("%s %s → %s\n", marker, keyword, label)
	}
	if !matched {
		fmt.Println("   label is not one of the candidate categories")
	}
}
