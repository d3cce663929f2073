// Package config reads the configuration of a run. Values are taken from a
// yaml file or environment variables or both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prospection/autofollow/internal/automator"
	"github.com/prospection/autofollow/internal/browser"
	"github.com/prospection/autofollow/internal/controller"
	"github.com/prospection/autofollow/internal/output"
	"gopkg.in/yaml.v3"
)

type StoreConfig struct {
	Path string `yaml:"path" env:"AUTOFOLLOW_DB" env-default:"prospection_data.db"`
}

// Config defines the overall structure of the configuration.
type Config struct {
	Browser    browser.Config      `yaml:"browser"`
	Automation automator.Config    `yaml:"automation"`
	Controller controller.Config   `yaml:"controller"`
	Store      StoreConfig         `yaml:"store"`
	Output     output.WriterConfig `yaml:"output"`
}

// NewConfig reads the configuration file at configPath. A missing file is
// not an error, the defaults and environment are used instead.
func NewConfig(configPath string) (*Config, error) {
	var config Config
	if configPath != "" {
		err := cleanenv.ReadConfig(configPath, &config)
		if err == nil {
			return &config, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error while reading config %s: %w", configPath, err)
		}
	}
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("error while reading config from environment: %w", err)
	}
	return &config, nil
}

// Default returns the configuration used when nothing is configured.
func Default() (*Config, error) {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	config.Automation.EntityPatterns = automator.DefaultEntityPatterns
	return &config, nil
}

// WriteFile writes c as yaml to path. An existing file is only replaced when
// overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file %s already exists", path)
		}
	}
	yamlData, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error while marshalling config: %w", err)
	}
	return os.WriteFile(path, yamlData, 0644)
}
