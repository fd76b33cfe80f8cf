package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteDefault creates the default config file unless one already exists.
// It returns the path it wrote or found.
func WriteDefault(path string) (string, bool, error) {
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := DefaultConfig().Save(path); err != nil {
		return "", false, fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, true, nil
}

// ReadFile decodes a YAML config file without consulting the environment.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}
