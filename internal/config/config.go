// Package config loads the service configuration from an HCL file.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "PANLENS_CONFIG"

// Config is the decoded panlens.hcl.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `hcl:"listen,optional"`
	// ConfigsDir holds the .xml configuration exports.
	ConfigsDir string `hcl:"configs_dir,optional"`
	// CachePath is the sqlite snapshot cache; empty disables persistence.
	CachePath string `hcl:"cache_path,optional"`
	Log       *Log   `hcl:"log,block"`
}

// Log configures the process logger.
type Log struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Listen:     ":8080",
		ConfigsDir: "./configs",
		CachePath:  "./panlens-cache.db",
		Log:        &Log{Level: "info", Format: "console"},
	}
}

// Load reads the configuration file at path (or $PANLENS_CONFIG when path
// is empty). A missing file yields defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
	if cfg.ConfigsDir == "" {
		cfg.ConfigsDir = def.ConfigsDir
	}
	if cfg.Log == nil {
		cfg.Log = def.Log
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
