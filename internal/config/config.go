package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"yashubustudio/agreement/agreement"
)

const (
	// DefaultConfigFile is read when no path is given and the file exists.
	DefaultConfigFile = "agreement.yaml"
	// DefaultDotEnvFile is loaded into the environment when present.
	DefaultDotEnvFile = ".env"
	// EnvPrefix prefixes every environment variable the loader reads.
	EnvPrefix = "AGREEMENT_"
)

// Options selects the sources Load reads.
type Options struct {
	// ConfigPath is the config file given on the command line. When empty,
	// AGREEMENT_CONFIG and then DefaultConfigFile are tried.
	ConfigPath string
	// DotEnvPath overrides DefaultDotEnvFile.
	DotEnvPath string
	// Overrides holds values set by command-line flags.
	Overrides agreement.Config
}

// Load merges defaults, config file, environment and flag overrides, then
// applies defaults and validates the result.
func Load(opts Options) (agreement.Config, error) {
	cfg, err := newConfigBuilder().
		withDefaults().
		withDotEnv(opts.DotEnvPath).
		withEnv().
		withFlags(opts.ConfigPath, opts.Overrides).
		withFile().
		build()
	if err != nil {
		return agreement.Config{}, err
	}
	return *cfg, nil
}

// Save writes cfg to path as YAML or JSON, chosen by extension, replacing the
// file atomically.
func Save(path string, cfg agreement.Config) error {
	if path == "" {
		path = DefaultConfigFile
	}
	cfg.ApplyDefaults()
	data, err := encode(path, cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func encode(path string, cfg agreement.Config) ([]byte, error) {
	switch format(path) {
	case formatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		return buf.Bytes(), nil
	case formatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
