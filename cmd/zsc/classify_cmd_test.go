// SPDX-License-Identifier: MIT
package main

import (
	"reflect"
	"testing"
)

func TestSplitCategories(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "whitespace", in: "   ", want: nil},
		{name: "single", in: "Pump", want: []string{"Pump"}},
		{name: "messy", in: " Pump , Valve ,,Compressor ", want: []string{"Pump", "Valve", "Compressor"}},
		{name: "japanese", in: "ポンプ,バルブ", want: []string{"ポンプ", "バルブ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCategories(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitCategories(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunClassifyCLI_FlagValidation(t *testing.T) {
	t.Setenv("ZSC_DATA", t.TempDir())

	t.Run("missing_api_key", func(t *testing.T) {
		t.Setenv("ZSC_GEMINI_API_KEY", "")
		if code := runClassifyCLI([]string{"真空ポンプ"}); code != 1 {
			t.Errorf("expected missing gemini key to exit 1, got %d", code)
		}
	})

	t.Run("missing_keyword", func(t *testing.T) {
		t.Setenv("ZSC_GEMINI_API_KEY", "k")
		t.Setenv("ZSC_CATEGORIES", "Pump,Valve")
		if code := runClassifyCLI(nil); code != 2 {
			t.Errorf("expected missing keyword to exit 2, got %d", code)
		}
	})

	t.Run("keyword_with_from_snapshot", func(t *testing.T) {
		t.Setenv("ZSC_GEMINI_API_KEY", "k")
		t.Setenv("ZSC_CATEGORIES", "Pump,Valve")
		if code := runClassifyCLI([]string{"--from-snapshot", "x.yaml", "keyword"}); code != 2 {
			t.Errorf("expected conflicting arguments to exit 2, got %d", code)
		}
	})

	t.Run("no_categories", func(t *testing.T) {
		t.Setenv("ZSC_GEMINI_API_KEY", "k")
		t.Setenv("ZSC_CATEGORIES", "")
		if code := runClassifyCLI([]string{"keyword"}); code != 2 {
			t.Errorf("expected missing categories to exit 2, got %d", code)
		}
	})

	t.Run("keyword_only_with_from_snapshot", func(t *testing.T) {
		t.Setenv("ZSC_GEMINI_API_KEY", "k")
		t.Setenv("ZSC_CATEGORIES", "Pump,Valve")
		if code := runClassifyCLI([]string{"--from-snapshot", "x.yaml", "--keyword-only"}); code != 2 {
			t.Errorf("expected mutually exclusive flags to exit 2, got %d", code)
		}
	})

	t.Run("keyword_only_with_persist", func(t *testing.T) {
		t.Setenv("ZSC_GEMINI_API_KEY", "k")
		t.Setenv("ZSC_CATEGORIES", "Pump,Valve")
		if code := runClassifyCLI([]string{"--keyword-only", "--persist", "keyword"}); code != 2 {
			t.Errorf("expected persist without evidence to exit 2, got %d", code)
		}
	})
}

func TestRunSearchCLI_FlagValidation(t *testing.T) {
	t.Setenv("ZSC_DATA", t.TempDir())

	if code := runSearchCLI(nil); code != 2 {
		t.Errorf("expected missing keyword to exit 2, got %d", code)
	}

	t.Setenv("ZSC_GOOGLE_API_KEY", "")
	if code := runSearchCLI([]string{"真空ポンプ"}); code != 1 {
		t.Errorf("expected missing search credentials to exit 1, got %d", code)
	}
}
