// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
)

func newHealthyDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zsc.db")
	store, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	return path
}

func TestDoVerify(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		path := newHealthyDB(t)
		if code := doVerify(path, "quick"); code != 0 {
			t.Errorf("expected healthy database to exit 0, got %d", code)
		}
		if code := doVerify(path, "full"); code != 0 {
			t.Errorf("expected full check on healthy database to exit 0, got %d", code)
		}
	})

	t.Run("garbage_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.db")
		if err := os.WriteFile(path, []byte("this is not a database"), 0600); err != nil {
			t.Fatalf("write garbage: %v", err)
		}
		if code := doVerify(path, "quick"); code != 1 {
			t.Errorf("expected garbage file to exit 1, got %d", code)
		}
	})
}

func TestRunStorageVerify_FlagValidation(t *testing.T) {
	if code := runStorageVerify([]string{"--path", "x.db", "--mode", "paranoid"}); code != 2 {
		t.Errorf("expected invalid mode to exit 2, got %d", code)
	}
	missing := filepath.Join(t.TempDir(), "absent.db")
	if code := runStorageVerify([]string{"--path", missing}); code != 2 {
		t.Errorf("expected missing database to exit 2, got %d", code)
	}
}

func TestRunStorageVerify_DefaultsToConfiguredPath(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("ZSC_DATA", dataDir)

	// Create the database where the default config places it.
	store, err := sqlite.Open(filepath.Join(dataDir, "zsc.db"), sqlite.DefaultConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	if code := runStorageVerify(nil); code != 0 {
		t.Errorf("expected configured database to verify, got %d", code)
	}
}

func TestRunStorageCLI_Dispatch(t *testing.T) {
	if code := runStorageCLI(nil); code != 0 {
		t.Errorf("expected usage to exit 0, got %d", code)
	}
	if code := runStorageCLI([]string{"defrag"}); code != 2 {
		t.Errorf("expected unknown subcommand to exit 2, got %d", code)
	}
}
