package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	NotifierDesktop = "desktop"
	NotifierLog     = "log"
	NotifierNone    = "none"
)

const appDirName = "dosely"

// defaultTestDelay matches 0.002 hours.
const defaultTestDelay = 7.2

type Config struct {
	Env              string  `yaml:"env" mapstructure:"env"`
	StorageDir       string  `yaml:"storage_dir" mapstructure:"storage_dir"`
	Notifier         string  `yaml:"notifier" mapstructure:"notifier"`
	AppName          string  `yaml:"app_name" mapstructure:"app_name"`
	DefaultUnit      string  `yaml:"default_unit" mapstructure:"default_unit"`
	TestDelaySeconds float64 `yaml:"test_delay_seconds" mapstructure:"test_delay_seconds"`
	Theme            string  `yaml:"theme" mapstructure:"theme"`
	LogFile          string  `yaml:"log_file,omitempty" mapstructure:"log_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Env:              EnvProd,
		StorageDir:       filepath.Join(Dir(), "storage"),
		Notifier:         NotifierDesktop,
		AppName:          "Dosely",
		DefaultUnit:      string(meds.UnitHours),
		TestDelaySeconds: defaultTestDelay,
		Theme:            "green",
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appDirName)
}

// Path is where `dosely config init` writes the config file.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads config.yaml from the working directory or the user config
// directory, then applies DOSELY_* environment overrides.
func Load() (*Config, error) {
	return load(viper.New(), ".", Dir())
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// AutomaticEnv only reaches keys viper already knows about.
	v.SetDefault("env", cfg.Env)
	v.SetDefault("storage_dir", cfg.StorageDir)
	v.SetDefault("notifier", cfg.Notifier)
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("default_unit", cfg.DefaultUnit)
	v.SetDefault("test_delay_seconds", cfg.TestDelaySeconds)
	v.SetDefault("theme", cfg.Theme)
	v.SetDefault("log_file", cfg.LogFile)

	v.SetEnvPrefix("DOSELY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and fills in defaults for the rest.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("config: env %q must be local, dev or prod", c.Env)
	}
	switch c.Notifier {
	case NotifierDesktop, NotifierLog, NotifierNone:
	default:
		return fmt.Errorf("config: notifier %q must be desktop, log or none", c.Notifier)
	}
	if strings.TrimSpace(c.StorageDir) == "" {
		return fmt.Errorf("config: storage_dir is required")
	}
	if c.AppName == "" {
		c.AppName = "Dosely"
	}
	c.DefaultUnit = meds.ParseUnit(c.DefaultUnit).String()
	if c.TestDelaySeconds <= 0 {
		c.TestDelaySeconds = defaultTestDelay
	}
	if c.Theme == "" {
		c.Theme = "green"
	}
	return nil
}
