package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir  = ".dataclassify"
	DefaultConfigFile = "config"
	DefaultRulesFile  = "rules.yaml"
	DefaultLogFile    = "audit.jsonl"
	DefaultPacksDir   = "packs"

	EnvPrefix = "DATACLASSIFY"
)

type Config struct {
	// ConfigDir is ~/.dataclassify; it is not read from the file.
	ConfigDir string `mapstructure:"-"`

	Log    LogConfig    `mapstructure:"log"`
	Audit  AuditConfig  `mapstructure:"audit"`
	Rules  RulesConfig  `mapstructure:"rules"`
	Engine EngineConfig `mapstructure:"engine"`
	Scan   ScanConfig   `mapstructure:"scan"`
}

// LogConfig controls the operational (zap) logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuditConfig controls the JSONL record of every classification.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RulesConfig struct {
	Path     string `mapstructure:"path"`
	PacksDir string `mapstructure:"packs_dir"`
}

type EngineConfig struct {
	// HistoryLimit bounds the per-file history; 0 keeps everything.
	HistoryLimit int `mapstructure:"history_limit"`
}

type ScanConfig struct {
	Workers      int   `mapstructure:"workers"`
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
}

// Load resolves configuration from defaults, the config file and
// DATACLASSIFY_* environment variables, in increasing precedence. Non-empty
// rulesPath and auditPath (command-line flags) override everything. An
// explicit configFile must exist; the default ~/.dataclassify/config.yaml
// is optional.
func Load(configFile, rulesPath, auditPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigDir = configDir

	if rulesPath != "" {
		cfg.Rules.Path = rulesPath
	}
	if auditPath != "" {
		cfg.Audit.Path = auditPath
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", filepath.Join(configDir, DefaultLogFile))

	v.SetDefault("rules.path", filepath.Join(configDir, DefaultRulesFile))
	v.SetDefault("rules.packs_dir", filepath.Join(configDir, DefaultPacksDir))

	v.SetDefault("engine.history_limit", 100)

	v.SetDefault("scan.workers", 4)
	v.SetDefault("scan.max_file_bytes", 10*1024*1024)
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Engine.HistoryLimit < 0 {
		return fmt.Errorf("engine.history_limit must not be negative")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	if c.Scan.MaxFileBytes <= 0 {
		return fmt.Errorf("scan.max_file_bytes must be positive")
	}
	return nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
