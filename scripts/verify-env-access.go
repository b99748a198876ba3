// SPDX-License-Identifier: MIT

// Verifies that environment variables are read only through the tracked
// loader in internal/config. Ad-hoc os.Getenv calls bypass the
// consumed-key accounting that `zsc config dump` and the docs rely on.
//
// Usage: go run scripts/verify-env-access.go [package-pattern]
package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// approved lists the deliberate exceptions, keyed by file suffix and
// variable name. New entries need a matching consumed-key story in
// internal/config or a reason the value cannot come from the loader.
var approved = map[string]bool{
	// Bootstrap fallback: the logger exists before any config load.
	"internal/log/logger.go:ZSC_LOG_LEVEL": true,
	// Telemetry resource tag, read once at startup.
	"internal/daemon/daemon.go:ZSC_ENVIRONMENT": true,
	// Flag default for the status probe; probing a daemon must not
	// require a full config load.
	"cmd/zsc/status_cmd.go:ZSC_API_TOKEN": true,
}

func main() {
	pattern := "./..."
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	violations, err := Analyze(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "❌ untracked environment access found:")
		for _, v := range violations {
			fmt.Fprintln(os.Stderr, v)
		}
		fmt.Fprintln(os.Stderr, "read settings through internal/config, or add an approved exception in scripts/verify-env-access.go")
		os.Exit(1)
	}
}

// Analyze reports os.Getenv/os.LookupEnv/os.Environ calls outside
// internal/config for the given package pattern.
func Analyze(pattern string) ([]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedFiles | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedName,
		Dir:  ".",
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.PkgPath, "internal/config") {
			continue
		}
		for i, file := range pkg.Syntax {
			filename := ""
			if i < len(pkg.CompiledGoFiles) {
				filename = pkg.CompiledGoFiles[i]
			} else if i < len(pkg.GoFiles) {
				filename = pkg.GoFiles[i]
			}
			if filename == "" || strings.HasSuffix(filename, "_test.go") {
				continue
			}

			ast.Inspect(file, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok || !isEnvRead(sel, pkg.TypesInfo) {
					return true
				}
				key := literalKey(call)
				if isApproved(filename, key) {
					return true
				}
				msg := fmt.Sprintf("os.%s(%q) outside internal/config", sel.Sel.Name, key)
				if key == "" {
					msg = fmt.Sprintf("os.%s with a non-literal key outside internal/config", sel.Sel.Name)
				}
				line := pkg.Fset.Position(call.Pos()).Line
				violations = append(violations, formatViolation(filename, line, msg))
				return true
			})
		}
	}
	return violations, nil
}

func isEnvRead(sel *ast.SelectorExpr, info *types.Info) bool {
	switch sel.Sel.Name {
	case "Getenv", "LookupEnv", "Environ":
	default:
		return false
	}
	obj := info.ObjectOf(sel.Sel)
	if obj == nil || obj.Pkg() == nil {
		return false
	}
	return obj.Pkg().Path() == "os"
}

func literalKey(call *ast.CallExpr) string {
	if len(call.Args) == 0 {
		return ""
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return ""
	}
	val, _ := strconv.Unquote(lit.Value)
	return val
}

func isApproved(filename, key string) bool {
	path := filepath.ToSlash(filename)
	for entry := range approved {
		i := strings.LastIndex(entry, ":")
		if i < 0 {
			continue
		}
		if strings.HasSuffix(path, entry[:i]) && key == entry[i+1:] {
			return true
		}
	}
	return false
}

func formatViolation(filename string, line int, msg string) string {
	if rel, err := filepath.Rel(".", filename); err == nil {
		filename = rel
	}
	return fmt.Sprintf("%s:%d: %s", filename, line, msg)
}
