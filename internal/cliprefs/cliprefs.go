// Package cliprefs implements chronosctl's operator preferences file: a
// small YAML file remembering the default control-plane address, TLS
// settings, and output format so operators do not have to repeat --addr on
// every invocation. Flags always win over stored preferences.
package cliprefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAddress is used when no preferences file exists and no --addr
// flag was given.
const DefaultAddress = "127.0.0.1:8420"

// DefaultFormat is the output rendering chosen when neither the prefs file
// nor a --json flag says otherwise.
const DefaultFormat = "table"

// Prefs is the persisted shape of ~/.config/chronosctl/prefs.yaml.
type Prefs struct {
	Address string `yaml:"address"`
	TLS     bool   `yaml:"tls"`
	TLSCA   string `yaml:"tls_ca,omitempty"`
	Format  string `yaml:"format"` // "table" or "json"
}

// DefaultPath returns the resolved preferences file path:
// $CHRONOSCTL_PREFS if set, else $XDG_CONFIG_HOME/chronosctl/prefs.yaml,
// else ~/.config/chronosctl/prefs.yaml.
func DefaultPath() string {
	if envPath := strings.TrimSpace(os.Getenv("CHRONOSCTL_PREFS")); envPath != "" {
		return envPath
	}
	configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if configHome == "" {
		configHome = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configHome, "chronosctl", "prefs.yaml")
}

// Load reads the preferences file at path. A missing file is not an error:
// it returns DefaultAddress and DefaultFormat with TLS off instead, so
// chronosctl works with no prefs file at all.
func Load(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Prefs{Address: DefaultAddress, Format: DefaultFormat}, nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("read prefs %s: %w", path, err)
	}

	var p Prefs
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("parse prefs %s: %w", path, err)
	}

	if strings.TrimSpace(p.Address) == "" {
		p.Address = DefaultAddress
	}
	if strings.TrimSpace(p.Format) == "" {
		p.Format = DefaultFormat
	}
	return p, nil
}

// Save writes p to path, creating parent directories as needed.
func Save(path string, p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write prefs %s: %w", path, err)
	}
	return nil
}
