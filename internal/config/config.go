// Package config loads the certwizard settings from an optional YAML (or JSON)
// file and overlays the values given explicitly on the command line.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "certwizard.yaml"

// Config is the full set of settings.
type Config struct {
	Endpoint    string        `yaml:"endpoint"`
	ExplorerURL string        `yaml:"explorer_url"`
	Timeout     time.Duration `yaml:"timeout"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	LogLevel    string        `yaml:"log_level"`
	Markdown    bool          `yaml:"markdown"`
	Redis       RedisConfig   `yaml:"redis"`

	// Steps replaces the default step table when set.
	Steps []domain.Step `yaml:"steps"`
}

// RedisConfig enables the shared in-flight guard when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		ExplorerURL: domain.DefaultExplorerURL,
		LockTTL:     5 * time.Minute,
		LogLevel:    "warn",
		Markdown:    true,
		Redis: RedisConfig{
			Prefix: "certwizard:",
		},
	}
}

// Load is Read followed by Validate.
func Load(path string, overrides map[string]any) (Config, error) {
	cfg, err := Read(path, overrides)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read reads path (a missing DefaultFile is not an error) and applies overrides.
// Override keys use dots for nesting, e.g. "redis.addr".
func Read(path string, overrides map[string]any) (Config, error) {
	raw := map[string]any{}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := unmarshal(path, data, &raw); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	for key, val := range overrides {
		setPath(raw, strings.Split(key, "."), val)
	}

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required (set it in the config file or with --endpoint)")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock_ttl must be positive: %s", c.LockTTL)
	}
	if !strings.Contains(c.ExplorerURL, "%s") {
		return fmt.Errorf("explorer_url must contain %%s: %q", c.ExplorerURL)
	}
	for _, s := range c.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid step table: %w", err)
		}
	}
	return nil
}

func unmarshal(path string, data []byte, out *map[string]any) error {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if *out == nil {
		*out = map[string]any{}
	}
	return nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setPath(m map[string]any, keys []string, val any) {
	if len(keys) == 1 {
		m[keys[0]] = val
		return
	}
	child, ok := m[keys[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[keys[0]] = child
	}
	setPath(child, keys[1:], val)
}
