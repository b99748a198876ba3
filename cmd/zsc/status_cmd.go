// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
)

// statusPayload mirrors the /api/status response body.
type statusPayload struct {
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Refreshing    bool              `json:"refreshing"`
	LastRefresh   *jobs.Status      `json:"last_refresh,omitempty"`
	Keywords      int               `json:"keywords"`
	Cache         *cache.Stats      `json:"cache,omitempty"`
	Breakers      map[string]string `json:"breakers,omitempty"`
}

// runStatusCLI queries a running daemon and prints a short summary.
func runStatusCLI(args []string) int {
	fs := flag.NewFlagSet("zsc status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	addr := fs.String("addr", "127.0.0.1:8080", "daemon address (host:port)")
	token := fs.String("token", "", "API token (defaults to ZSC_API_TOKEN)")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	asJSON := fs.Bool("json", false, "print the raw JSON response")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	apiToken := strings.TrimSpace(*token)
	if apiToken == "" {
		apiToken = os.Getenv("ZSC_API_TOKEN")
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/api/status", *addr), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+apiToken)
	}

	client := http.Client{Timeout: *timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: daemon not reachable at %s: %v\n", *addr, err)
		return 1
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading response: %v\n", err)
		return 1
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error: daemon answered %s\n%s\n", resp.Status, strings.TrimSpace(string(body)))
		return 1
	}

	if *asJSON {
		fmt.Println(strings.TrimSpace(string(body)))
		return 0
	}

	var st statusPayload
	if err := json.Unmarshal(body, &st); err != nil {
		fmt.Fprintf(os.Stderr, "Error: decoding response: %v\n", err)
		return 1
	}

	printStatus(os.Stdout, st)
	return 0
}

func printStatus(w io.Writer, st statusPayload) {
	uptime := (time.Duration(st.UptimeSeconds) * time.Second).String()
	fmt.Fprintf(w, "zsc %s, up %s\n", st.Version, uptime)
	fmt.Fprintf(w, "  keywords:   %d\n", st.Keywords)
	fmt.Fprintf(w, "  refreshing: %v\n", st.Refreshing)

	if st.LastRefresh != nil {
		lr := st.LastRefresh
		fmt.Fprintf(w, "  last refresh: %s (%d keywords, %d snapshots, %d classified, %d failures)\n",
			lr.StartedAt.Format(time.RFC3339), lr.Keywords, lr.Snapshots, lr.Classified, len(lr.Failures))
		if lr.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", lr.Error)
		}
	} else {
		fmt.Fprintln(w, "  last refresh: never")
	}

	if st.Cache != nil {
		fmt.Fprintf(w, "  cache: %s (%d hits, %d misses)\n", st.Cache.Backend, st.Cache.Hits, st.Cache.Misses)
	}

	if len(st.Breakers) > 0 {
		names := make([]string, 0, len(st.Breakers))
		for name := range st.Breakers {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, st.Breakers[name]))
		}
		fmt.Fprintf(w, "  breakers: %s\n", strings.Join(parts, " "))
	}
}
