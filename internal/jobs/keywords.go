// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"
	"os"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/normalize"
)

// LoadKeywords merges the configured keyword list with the optional
// keyword file, preserving order and dropping duplicates. Blank lines
// and lines starting with '#' are skipped. Keywords pasted from
// spreadsheets or web pages carry zero-width characters and BOMs;
// those are trimmed before anything downstream sees the keyword.
func LoadKeywords(cfg config.KeywordsConfig) ([]string, error) {
	merged := make([]string, 0, len(cfg.List))
	seen := make(map[string]struct{}, len(cfg.List))
	add := func(raw string) {
		kw := normalize.Keyword(raw)
		if kw == "" || strings.HasPrefix(kw, "#") {
			return
		}
		if _, dup := seen[kw]; dup {
			return
		}
		seen[kw] = struct{}{}
		merged = append(merged, kw)
	}

	for _, kw := range cfg.List {
		add(kw)
	}

	if cfg.File != "" {
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("jobs: read keyword file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			add(line)
		}
	}

	return merged, nil
}
