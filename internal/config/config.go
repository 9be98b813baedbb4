// Package config provides unified configuration management for agentsuite.
// Configuration is loaded from multiple sources with the following
// precedence: embedded defaults → global file → env vars → local file →
// CLI flags.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/config.yaml
var defaultsFS embed.FS

// RetryConfig controls capability call retries.
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
	DelayMs  int `yaml:"delay_ms"`

	AttemptsSet bool `yaml:"-"`
}

// BreakerConfig controls the capability circuit breaker.
type BreakerConfig struct {
	Threshold       int `yaml:"threshold"`
	CooldownSeconds int `yaml:"cooldown_seconds"`

	ThresholdSet bool `yaml:"-"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds all configuration settings for agentsuite.
// Fields ending in *Set track whether that field was explicitly set,
// so a local file can override the global one with zero values.
type Config struct {
	// CapabilityTimeout is the default per-capability timeout in seconds.
	CapabilityTimeout int `yaml:"capability_timeout"`

	Retry   RetryConfig   `yaml:"retry"`
	Breaker BreakerConfig `yaml:"breaker"`

	// GitStamp records the workspace commit and branch into each run.
	GitStamp bool `yaml:"git_stamp"`
	// MemoryBank records finished runs into memory-bank/progress.md.
	MemoryBank bool `yaml:"memory_bank"`

	Log LogConfig `yaml:"log"`

	// Set tracking for merge behavior
	CapabilityTimeoutSet bool `yaml:"-"`
	GitStampSet          bool `yaml:"-"`
	MemoryBankSet        bool `yaml:"-"`

	configDir string
	localDir  string
	sources   []string
}

// Sources returns the ordered list of sources that contributed to this
// config.
func (c *Config) Sources() []string { return c.sources }

// LocalDir returns the local project config directory if one was detected.
func (c *Config) LocalDir() string { return c.localDir }

// ConfigDir returns the global config directory.
func (c *Config) ConfigDir() string { return c.configDir }

// Load loads all configuration from the default locations. It auto-detects
// .agentsuite/ in the current working directory for local overrides and
// installs defaults if needed.
func Load() (*Config, error) {
	globalDir := DefaultConfigDir()

	var localDir string
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, ".agentsuite")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			localDir = candidate
		}
	}

	return LoadWithDirs(globalDir, localDir)
}

// LoadWithDirs loads configuration with explicit global and local
// directories. Local config overrides global config per field. When
// localDir is empty only global config is used.
func LoadWithDirs(globalDir, localDir string) (*Config, error) {
	if err := InstallDefaults(globalDir); err != nil {
		return nil, fmt.Errorf("install defaults: %w", err)
	}

	cfg, err := loadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load embedded defaults: %w", err)
	}
	cfg.sources = append(cfg.sources, "embedded")

	globalPath := filepath.Join(globalDir, "config.yaml")
	if globalCfg, err := loadFile(globalPath); err == nil {
		cfg.mergeFrom(globalCfg)
		cfg.sources = append(cfg.sources, globalPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	cfg.applyEnv()

	if localDir != "" {
		localPath := filepath.Join(localDir, "config.yaml")
		if localCfg, err := loadFile(localPath); err == nil {
			cfg.mergeFrom(localCfg)
			cfg.sources = append(cfg.sources, localPath)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load local config: %w", err)
		}
	}

	cfg.configDir = globalDir
	cfg.localDir = localDir

	return cfg, nil
}

// DefaultConfigDir returns the default global configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "agentsuite")
	}
	return filepath.Join(home, ".config", "agentsuite")
}

// InstallDefaults creates the config directory and installs the default
// config file if not present.
func InstallDefaults(configDir string) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := defaultsFS.ReadFile("defaults/config.yaml")
		if err != nil {
			return fmt.Errorf("read embedded config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
	}

	return nil
}

func loadEmbedded() (*Config, error) {
	data, err := defaultsFS.ReadFile("defaults/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}
	return parseConfig(data)
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfigWithTracking(data)
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// parseConfigWithTracking parses YAML config and tracks which fields were
// explicitly set.
func parseConfigWithTracking(data []byte) (*Config, error) {
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if _, ok := raw["capability_timeout"]; ok {
		cfg.CapabilityTimeoutSet = true
	}
	if _, ok := raw["git_stamp"]; ok {
		cfg.GitStampSet = true
	}
	if _, ok := raw["memory_bank"]; ok {
		cfg.MemoryBankSet = true
	}
	if retry, ok := raw["retry"].(map[string]any); ok {
		if _, ok := retry["attempts"]; ok {
			cfg.Retry.AttemptsSet = true
		}
	}
	if breaker, ok := raw["breaker"].(map[string]any); ok {
		if _, ok := breaker["threshold"]; ok {
			cfg.Breaker.ThresholdSet = true
		}
	}

	return cfg, nil
}

// applyEnv applies environment variables to the config. Env vars sit
// between global and local config in precedence.
func (c *Config) applyEnv() {
	if v := os.Getenv("AGENTSUITE_CAPABILITY_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CapabilityTimeout = n
			c.CapabilityTimeoutSet = true
			c.sources = append(c.sources, "env:AGENTSUITE_CAPABILITY_TIMEOUT")
		}
	}
	if v := os.Getenv("AGENTSUITE_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.Attempts = n
			c.Retry.AttemptsSet = true
			c.sources = append(c.sources, "env:AGENTSUITE_RETRY_ATTEMPTS")
		}
	}
	if v := os.Getenv("AGENTSUITE_GIT_STAMP"); v != "" {
		c.GitStamp = v == "true" || v == "1"
		c.GitStampSet = true
		c.sources = append(c.sources, "env:AGENTSUITE_GIT_STAMP")
	}
	if v := os.Getenv("AGENTSUITE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
		c.sources = append(c.sources, "env:AGENTSUITE_LOG_LEVEL")
	}
	if v := os.Getenv("AGENTSUITE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
		c.sources = append(c.sources, "env:AGENTSUITE_LOG_FORMAT")
	}
}

// mergeFrom merges non-empty/set values from src into c.
func (c *Config) mergeFrom(src *Config) {
	if src.CapabilityTimeoutSet {
		c.CapabilityTimeout = src.CapabilityTimeout
		c.CapabilityTimeoutSet = true
	}
	if src.GitStampSet {
		c.GitStamp = src.GitStamp
		c.GitStampSet = true
	}
	if src.MemoryBankSet {
		c.MemoryBank = src.MemoryBank
		c.MemoryBankSet = true
	}
	if src.Retry.AttemptsSet {
		c.Retry.Attempts = src.Retry.Attempts
		c.Retry.AttemptsSet = true
	}
	if src.Retry.DelayMs != 0 {
		c.Retry.DelayMs = src.Retry.DelayMs
	}
	if src.Breaker.ThresholdSet {
		c.Breaker.Threshold = src.Breaker.Threshold
		c.Breaker.ThresholdSet = true
	}
	if src.Breaker.CooldownSeconds != 0 {
		c.Breaker.CooldownSeconds = src.Breaker.CooldownSeconds
	}
	if src.Log.Level != "" {
		c.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		c.Log.Format = src.Log.Format
	}
}

// ApplyCLIFlags applies CLI flag overrides to the config. CLI flags have
// the highest precedence.
func (c *Config) ApplyCLIFlags(capabilityTimeout int) {
	if capabilityTimeout > 0 {
		c.CapabilityTimeout = capabilityTimeout
		c.CapabilityTimeoutSet = true
		c.sources = append(c.sources, "cli:capability-timeout")
	}
}
