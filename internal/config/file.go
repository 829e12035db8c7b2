package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"yashubustudio/agreement/agreement"
)

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatYAML
	formatJSON
)

func format(path string) fileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json":
		return formatJSON
	default:
		return formatUnknown
	}
}

// parseFile decodes a YAML or JSON config file. Unknown keys are rejected.
func parseFile(path string) (*agreement.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	defer f.Close()

	cfg := new(agreement.Config)
	switch format(path) {
	case formatYAML:
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error decoding yaml config: %w", err)
		}
	case formatJSON:
		dec := json.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("error decoding json config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return cfg, nil
}
