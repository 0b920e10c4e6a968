package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "NEWSDB_CONFIG"
	dbPathEnv     = "NEWSDB_DB"
	logLevelEnv   = "NEWSDB_LOG_LEVEL"

	defaultDBPath = "./data/news.db"
)

// Config holds settings shared across commands.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LimitsConfig holds default result bounds for list commands.
type LimitsConfig struct {
	PendingLimit int `yaml:"pendingLimit"`
	SyncLogLimit int `yaml:"syncLogLimit"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. The --db flag still wins over everything at the CLI boundary.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Limits.PendingLimit > 0 {
		base.Limits.PendingLimit = override.Limits.PendingLimit
	}
	if override.Limits.SyncLogLimit > 0 {
		base.Limits.SyncLogLimit = override.Limits.SyncLogLimit
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: defaultDBPath},
		Logging:  LoggingConfig{Level: "info"},
		Limits:   LimitsConfig{PendingLimit: 10, SyncLogLimit: 10},
	}
}
