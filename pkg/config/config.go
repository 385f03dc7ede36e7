// Package config loads the pagebuilder configuration from config.yaml in
// the configuration directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/pagebuilder/pkg/geometry"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigDir overrides every other way of choosing the config directory
	EnvConfigDir = "PAGEBUILDER_CONFIG_DIR"
	// FileName is the configuration file inside the config directory
	FileName = "config.yaml"
	// Version is written to new configuration files
	Version = "1.0"
)

// Storage backends
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full configuration file
type Config struct {
	Version string        `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Editor  EditorConfig  `yaml:"editor"`
	Canvas  CanvasConfig  `yaml:"canvas"`
	Panels  PanelConfig   `yaml:"panels"`
	Catalog CatalogConfig `yaml:"catalog"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects where documents are kept. A relative path is
// resolved against the config directory.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// EditorConfig tunes the editing core
type EditorConfig struct {
	AutosaveDelay   time.Duration `yaml:"autosave_delay"`
	MaxDepth        int           `yaml:"max_depth"`
	DragThreshold   float64       `yaml:"drag_threshold"`
	HistoryCapacity int           `yaml:"history_capacity"`
}

// CanvasConfig is the resize floor for canvas nodes
type CanvasConfig struct {
	MinWidth  float64 `yaml:"min_width"`
	MinHeight float64 `yaml:"min_height"`
}

// PanelConfig bounds workspace panel sizes
type PanelConfig struct {
	MinWidth  float64 `yaml:"min_width"`
	MinHeight float64 `yaml:"min_height"`
	MaxWidth  float64 `yaml:"max_width"`
	MaxHeight float64 `yaml:"max_height"`
}

// CatalogConfig points at an optional YAML catalog replacing the built-in one
type CatalogConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LogConfig sets the log level
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration written on first run
func Default() *Config {
	return &Config{
		Version: Version,
		Storage: StorageConfig{Backend: BackendSQLite},
		Editor: EditorConfig{
			AutosaveDelay:   time.Second,
			MaxDepth:        64,
			DragThreshold:   5,
			HistoryCapacity: 100,
		},
		Canvas: CanvasConfig{MinWidth: geometry.DefaultMinWidth, MinHeight: geometry.DefaultMinHeight},
		Panels: PanelConfig{MinWidth: 200, MinHeight: 120, MaxWidth: 800, MaxHeight: 1200},
		Log:    LogConfig{Level: "warn"},
	}
}

// ResolveDir picks the config directory: the environment variable, then
// flagDir, then ~/.pagebuilder.
func ResolveDir(flagDir string) (string, error) {
	if envDir := os.Getenv(EnvConfigDir); envDir != "" {
		return envDir, nil
	}
	if flagDir != "" {
		return flagDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pagebuilder"), nil
}

// Load reads config.yaml from dir, creating the directory and a default
// file when they do not exist. Missing keys keep their defaults.
func Load(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(dir, Default()); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to dir/config.yaml
func Save(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects values the editor cannot work with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("%w: storage.backend must be sqlite, file or memory, got %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Editor.AutosaveDelay <= 0 {
		return fmt.Errorf("%w: editor.autosave_delay must be positive", ErrInvalidConfig)
	}
	if c.Editor.MaxDepth < 1 {
		return fmt.Errorf("%w: editor.max_depth must be at least 1", ErrInvalidConfig)
	}
	if c.Editor.DragThreshold < 0 {
		return fmt.Errorf("%w: editor.drag_threshold cannot be negative", ErrInvalidConfig)
	}
	if c.Editor.HistoryCapacity < 1 {
		return fmt.Errorf("%w: editor.history_capacity must be at least 1", ErrInvalidConfig)
	}
	if c.Canvas.MinWidth < 0 || c.Canvas.MinHeight < 0 {
		return fmt.Errorf("%w: canvas minimums cannot be negative", ErrInvalidConfig)
	}
	p := c.Panels
	if p.MinWidth < 0 || p.MinHeight < 0 || p.MaxWidth < 0 || p.MaxHeight < 0 {
		return fmt.Errorf("%w: panel bounds cannot be negative", ErrInvalidConfig)
	}
	if (p.MaxWidth > 0 && p.MaxWidth < p.MinWidth) || (p.MaxHeight > 0 && p.MaxHeight < p.MinHeight) {
		return fmt.Errorf("%w: panel maximums must not be below minimums", ErrInvalidConfig)
	}
	return nil
}

// CanvasBounds returns the node resize floor
func (c *Config) CanvasBounds() geometry.Bounds {
	return geometry.Bounds{MinWidth: c.Canvas.MinWidth, MinHeight: c.Canvas.MinHeight}
}

// PanelBounds returns the workspace panel limits
func (c *Config) PanelBounds() geometry.Bounds {
	return geometry.Bounds{
		MinWidth:  c.Panels.MinWidth,
		MinHeight: c.Panels.MinHeight,
		MaxWidth:  c.Panels.MaxWidth,
		MaxHeight: c.Panels.MaxHeight,
	}
}

// StoragePath resolves the storage location against dir
func (c *Config) StoragePath(dir string) string {
	path := c.Storage.Path
	if path == "" {
		switch c.Storage.Backend {
		case BackendFile:
			path = "documents"
		default:
			path = "pagebuilder.db"
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
