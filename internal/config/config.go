package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultConfigPath    = "migrate.yml"
	DefaultMigrationsDir = "migrations"
	DefaultManifest      = "migration.conf"
	DefaultSplitter      = "naive"
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string
	MigrationsDir    string
	Manifest         string
	Splitter         string
	LockTimeout      time.Duration // zero: server default
	StatementTimeout time.Duration // zero: server default
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"`
	Manifest         string `yaml:"manifest"`
	Splitter         string `yaml:"splitter"`
	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir: DefaultMigrationsDir,
		Manifest:      DefaultManifest,
		Splitter:      DefaultSplitter,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	cfg.DatabaseURL = raw.DatabaseURL
	setIfNotEmpty(&cfg.MigrationsDir, raw.MigrationsDir)
	setIfNotEmpty(&cfg.Manifest, raw.Manifest)
	setIfNotEmpty(&cfg.Splitter, raw.Splitter)

	if err := parseDuration("lock_timeout", raw.LockTimeout, &cfg.LockTimeout); err != nil {
		return nil, err
	}

	if err := parseDuration("statement_timeout", raw.StatementTimeout, &cfg.StatementTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MergeEnv overrides config fields from MIGRATE_* environment variables.
// Unparseable durations are ignored.
func MergeEnv(cfg *Config) {
	setIfNotEmpty(&cfg.DatabaseURL, os.Getenv("MIGRATE_DATABASE_URL"))
	setIfNotEmpty(&cfg.MigrationsDir, os.Getenv("MIGRATE_MIGRATIONS_DIR"))
	setIfNotEmpty(&cfg.Manifest, os.Getenv("MIGRATE_MANIFEST"))
	setIfNotEmpty(&cfg.Splitter, os.Getenv("MIGRATE_SPLITTER"))

	_ = parseDuration("MIGRATE_LOCK_TIMEOUT", os.Getenv("MIGRATE_LOCK_TIMEOUT"), &cfg.LockTimeout)
	_ = parseDuration("MIGRATE_STATEMENT_TIMEOUT", os.Getenv("MIGRATE_STATEMENT_TIMEOUT"), &cfg.StatementTimeout)
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseDuration sets *dst from v when v is non-empty; dst is left untouched on error.
func parseDuration(field, v string, dst *time.Duration) error {
	if v == "" {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s %q: %w", field, v, err)
	}

	*dst = d

	return nil
}
