package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
)

var ErrNotFound = fmt.Errorf("tool config not found")

// Config holds per-user defaults for the aws-tools commands. It is the
// current (latest) schema; older files on disk are migrated on load.
type Config struct {
	SchemaVersion int    `yaml:"schema_version" mapstructure:"schema_version"`
	PolicyARN     string `yaml:"policy_arn,omitempty" mapstructure:"policy_arn"`
	MFASerial     string `yaml:"mfa_serial,omitempty" mapstructure:"mfa_serial"`

	// Settle is a duration string ("10s", "1m30s") so the file stays
	// hand-editable.
	Settle string `yaml:"settle,omitempty" mapstructure:"settle"`
}

// SettleDuration parses the stored settle default. Zero when unset.
func (c *Config) SettleDuration() (time.Duration, error) {
	if c.Settle == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Settle)
	if err != nil {
		return 0, fmt.Errorf("parsing settle duration '%s': %w", c.Settle, err)
	}
	return d, nil
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".aws-tools", "config.yaml"), nil
}

// Load reads the tool config, migrating older schema versions in
// memory. The file on disk is not rewritten; use Save for that.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading tool config '%s': %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing tool config '%s': %w", path, err)
	}

	migrated, _, err := Migrate(raw)
	if err != nil {
		return nil, fmt.Errorf("migrating tool config '%s': %w", path, err)
	}

	var cfg Config
	if err := mapstructure.Decode(migrated, &cfg); err != nil {
		return nil, fmt.Errorf("decoding tool config '%s': %w", path, err)
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg *Config) error {
	cfg.SchemaVersion = CurrentSchemaVersion

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory '%s': %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding tool config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing tool config '%s': %w", path, err)
	}
	return nil
}
