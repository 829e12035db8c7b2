package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"yashubustudio/agreement/agreement"
)

// envConfig lists the variables read after EnvPrefix. List values are comma
// separated.
type envConfig struct {
	ConfigPath  string   `env:"CONFIG"`
	Annotators  []string `env:"ANNOTATORS"`
	Categories  []string `env:"CATEGORIES"`
	TextColumns []string `env:"TEXT_COLUMNS"`
	ItemColumn  string   `env:"ITEM_COLUMN"`
	OutputDir   string   `env:"OUTPUT_DIR"`
	Archive     struct {
		DSN string `env:"DSN"`
	} `envPrefix:"ARCHIVE_"`
}

func parseEnv() (*envConfig, error) {
	cfg := new(envConfig)
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	return cfg, nil
}

func (e *envConfig) config() *agreement.Config {
	return &agreement.Config{
		Annotators:  e.Annotators,
		Categories:  e.Categories,
		TextColumns: e.TextColumns,
		ItemColumn:  e.ItemColumn,
		OutputDir:   e.OutputDir,
		Archive:     agreement.ArchiveConfig{DSN: e.Archive.DSN},
	}
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}
