// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// keysFile is the secrets file layout. It is kept separate from the main
// config so the config file can be committed while keys.yaml stays out
// of version control.
type keysFile struct {
	Google struct {
		APIKey   string `yaml:"api_key"`
		EngineID string `yaml:"custom_search_engine_id"`
	} `yaml:"google"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"gemini"`
}

// applyKeysFile overlays API keys from the keys file. An explicitly
// configured path must exist, the default location may be absent.
func (l *Loader) applyKeysFile(cfg *AppConfig) error {
	path, explicit := l.envLookup("ZSC_KEYS_FILE")
	if path == "" {
		// Setting the variable to an empty string means "use the default".
		explicit = false
	}
	if !explicit {
		// The env override for the data dir has not been merged yet, so
		// consult it here to keep the default lookup location consistent.
		dataDir := cfg.Data.Dir
		if v, ok := l.envLookup("ZSC_DATA"); ok && v != "" {
			dataDir = v
		}
		path = filepath.Join(dataDir, "keys.yaml")
	}

	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- operator-provided path
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read keys file %s: %w", path, err)
	}

	var keys keysFile
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("parse keys file %s: %w", path, err)
	}

	if keys.Google.APIKey != "" {
		cfg.Search.APIKey = keys.Google.APIKey
	}
	if keys.Google.EngineID != "" {
		cfg.Search.EngineID = keys.Google.EngineID
	}
	if keys.Gemini.APIKey != "" {
		cfg.Classify.APIKey = keys.Gemini.APIKey
	}
	return nil
}
