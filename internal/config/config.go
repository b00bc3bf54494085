// Package config provides configuration loading and structs for casebrief.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Models   []ModelConfig  `yaml:"models"`
	Roles    RolesConfig    `yaml:"roles"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Timeline TimelineConfig `yaml:"timeline"`
	Limits   LimitsConfig   `yaml:"limits"`
	Storage  StorageConfig  `yaml:"storage"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ModelConfig names one model endpoint that roles can refer to.
type ModelConfig struct {
	Name    string `yaml:"name"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	// APIKeyEnv is the environment variable holding the key. Defaults to
	// OPENAI_API_KEY.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// RolesConfig assigns named models to the reduction roles.
type RolesConfig struct {
	Drafters   []string `yaml:"drafters"`
	Aggregator string   `yaml:"aggregator"`
	Verifier   string   `yaml:"verifier"`
	Default    string   `yaml:"default"`
}

// PipelineConfig holds summary tree settings.
type PipelineConfig struct {
	PagesPerChunk     int      `yaml:"pages_per_chunk"`
	BatchSize         int      `yaml:"batch_size"`
	// Window is nil when unset; an explicit 0 turns neighbour context off.
	Window            *int     `yaml:"window"`
	MemorySamplePages int      `yaml:"memory_sample_pages"`
	MemoryChunkPages  int      `yaml:"memory_chunk_pages"`
	LeafFailureLimit  int      `yaml:"leaf_failure_limit"`
	BlockedNames      []string `yaml:"blocked_names"`
	Workers           int      `yaml:"workers"`
}

// TimelineConfig holds timeline settings.
type TimelineConfig struct {
	// ValidationPolicy is "placeholder" or "drop".
	ValidationPolicy string `yaml:"validation_policy"`
}

// LimitsConfig bounds model traffic.
type LimitsConfig struct {
	TokensPerSecond int           `yaml:"tokens_per_second"`
	Burst           int           `yaml:"burst"`
	MaxInFlight     int           `yaml:"max_in_flight"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	MaxRetries      *int          `yaml:"max_retries"`
	BaseRetryDelay  time.Duration `yaml:"base_retry_delay"`
	MaxRetryDelay   time.Duration `yaml:"max_retry_delay"`
}

// StorageConfig holds the run database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig holds inbox watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// Kind is the run kind applied to new files: brief, timeline or
	// comprehensive.
	Kind         string `yaml:"kind"`
	Instructions string `yaml:"instructions,omitempty"`
	// OutputDir receives one JSON file per processed document.
	OutputDir string `yaml:"output_dir"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// DefaultPath returns the config file location: $CASEBRIEF_CONFIG, else
// ~/.casebrief/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("CASEBRIEF_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".casebrief", "config.yaml")
}

// Load reads and parses the config file at path, expands paths, applies
// defaults and environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Watch.OutputDir = expandPath(cfg.Watch.OutputDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, or DefaultPath when path is empty. A missing
// file yields the default configuration.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	home, err := os.UserHomeDir()
	if err == nil {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, home)
		cfg.Watch.OutputDir = expandPath(cfg.Watch.OutputDir, home)
	}
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv applies environment overrides.
func ApplyEnv(cfg *Config) {
	if p := os.Getenv("CASEBRIEF_DB_PATH"); p != "" {
		cfg.Storage.DatabasePath = p
	}
}

// Validate checks that every role names a configured model.
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return errors.New("config: every model needs a name")
		}
		if names[m.Name] {
			return fmt.Errorf("config: duplicate model name %q", m.Name)
		}
		names[m.Name] = true
	}
	refs := append([]string{c.Roles.Aggregator, c.Roles.Verifier, c.Roles.Default}, c.Roles.Drafters...)
	for _, ref := range refs {
		if !names[ref] {
			return fmt.Errorf("config: role refers to unknown model %q", ref)
		}
	}
	switch strings.ToLower(c.Watch.Kind) {
	case "brief", "timeline", "comprehensive":
	default:
		return fmt.Errorf("config: unknown watch kind %q", c.Watch.Kind)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
