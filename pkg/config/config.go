// Package config loads KnowledgeSync configuration from a YAML file and
// the environment. Environment variables win over the file, the file
// wins over defaults, so a shared knowledgesync.yaml can be checked in
// per team while each agent overrides its own identity via KSYNC_AGENT.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backend names accepted in Config.Storage.
const (
	StorageFile   = "file"
	StorageBadger = "badger"
	StorageMemory = "memory"
)

// Config holds all KnowledgeSync settings.
type Config struct {
	// Agent is this instance's identity; entry sources and sync log
	// attribution use it (canonicalized to upper case downstream).
	Agent string `yaml:"agent"`

	// DataDir is where the store persists its documents.
	DataDir string `yaml:"data_dir"`

	// Storage selects the persistence engine: file, badger, or memory.
	Storage string `yaml:"storage"`

	// AutoSync writes state through after every mutation.
	AutoSync bool `yaml:"auto_sync"`

	// SyncDir, when set, is the shared directory snapshots are exported
	// to and imported from (see knowledgesync.Watcher).
	SyncDir string `yaml:"sync_dir"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Agent:    "SYSTEM",
		DataDir:  filepath.Join(home, ".knowledgesync"),
		Storage:  StorageFile,
		AutoSync: true,
		LogLevel: "info",
	}
}

// Load builds the effective configuration: defaults, overlaid by the
// YAML file at path (skipped silently if path is empty or the file does
// not exist), overlaid by KSYNC_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds the effective configuration from defaults and the
// environment only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnv() {
	if v := os.Getenv("KSYNC_AGENT"); v != "" {
		c.Agent = v
	}
	if v := os.Getenv("KSYNC_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KSYNC_STORAGE"); v != "" {
		c.Storage = v
	}
	if v := os.Getenv("KSYNC_AUTO_SYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoSync = b
		}
	}
	if v := os.Getenv("KSYNC_SYNC_DIR"); v != "" {
		c.SyncDir = v
	}
	if v := os.Getenv("KSYNC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage) {
	case StorageFile, StorageBadger, StorageMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q (want file, badger, or memory)", c.Storage)
	}
	if c.Agent == "" {
		return fmt.Errorf("config: agent cannot be empty")
	}
	if c.Storage != StorageMemory && c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required for %s storage", c.Storage)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}
