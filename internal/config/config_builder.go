package config

import (
	"errors"
	"fmt"
	"os"

	"dario.cat/mergo"

	"yashubustudio/agreement/agreement"
)

type configBuilder struct {
	defaults *agreement.Config
	file     *agreement.Config
	env      *agreement.Config
	flags    *agreement.Config

	path string
	err  error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{}
}

// build merges the layers from lowest to highest priority.
func (b *configBuilder) build() (*agreement.Config, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	config := new(agreement.Config)
	for _, layer := range []*agreement.Config{b.defaults, b.file, b.env, b.flags} {
		if layer == nil {
			continue
		}
		if err := mergo.Merge(config, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return config, nil
}

func (b *configBuilder) withDefaults() *configBuilder {
	cfg := agreement.DefaultConfig()
	b.defaults = &cfg
	return b
}

func (b *configBuilder) withDotEnv(path string) *configBuilder {
	if path == "" {
		path = DefaultDotEnvFile
	}
	if err := loadDotEnv(path); err != nil {
		b.err = errors.Join(b.err, err)
	}
	return b
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg, err := parseEnv()
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	if envCfg.ConfigPath != "" {
		b.path = envCfg.ConfigPath
	}
	b.env = envCfg.config()
	return b
}

func (b *configBuilder) withFlags(path string, overrides agreement.Config) *configBuilder {
	if path != "" {
		b.path = path
	}
	b.flags = &overrides
	return b
}

// withFile reads the config file chosen by flags or environment, or the
// default file when it exists.
func (b *configBuilder) withFile() *configBuilder {
	path := b.path
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err != nil {
			return b
		}
		path = DefaultConfigFile
	}
	fileCfg, err := parseFile(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.file = fileCfg
	return b
}
