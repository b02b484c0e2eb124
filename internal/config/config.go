package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abramin/voyage/internal/logging"
)

// FileName is the configuration file looked up when no path is given.
const FileName = "voyage.yaml"

// Config represents the Voyage configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Traversal TraversalConfig `yaml:"traversal"`
	Layout    LayoutConfig    `yaml:"layout"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Watch     WatchConfig     `yaml:"watch"`
	Log       logging.Options `yaml:"log"`
}

// CatalogConfig locates the service definition files.
type CatalogConfig struct {
	Dirs        []string `yaml:"dirs"`
	FilesGlob   []string `yaml:"files_glob"`
	ExcludeDirs []string `yaml:"exclude_dirs"`
	ProjectID   string   `yaml:"project_id"`
	ProjectName string   `yaml:"project_name"`
}

// TraversalConfig bounds dependency expansion.
type TraversalConfig struct {
	MaxDepth int `yaml:"max_depth"`
	// DepthLimit caps depths requested through the API.
	DepthLimit int `yaml:"depth_limit"`
}

// LayoutConfig sizes the boxes handed to the auto-layout engine.
type LayoutConfig struct {
	CharWidth       int `yaml:"char_width"`
	MinLabelWidth   int `yaml:"min_label_width"`
	Padding         int `yaml:"padding"`
	NodeHeight      int `yaml:"node_height"`
	EventNodeHeight int `yaml:"event_node_height"`
	EndpointHeight  int `yaml:"endpoint_height"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StoreConfig locates the project database.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// WatchConfig controls catalog change detection.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Dirs:        []string{"services"},
			FilesGlob:   []string{"*.yaml", "*.yml", "*.json"},
			ExcludeDirs: []string{"node_modules", "testdata", ".voyage"},
			ProjectID:   "local",
			ProjectName: "Local catalog",
		},
		Traversal: TraversalConfig{
			MaxDepth:   1,
			DepthLimit: 6,
		},
		Layout: LayoutConfig{
			CharWidth:       10,
			MinLabelWidth:   300,
			Padding:         100,
			NodeHeight:      100,
			EventNodeHeight: 150,
			EndpointHeight:  80,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Store: StoreConfig{
			Dir: ".",
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
		Log: logging.Options{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from file, falling back to defaults.
// If configPath is empty, it looks for voyage.yaml in the current directory.
// Values present in the file replace the defaults field by field.
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = FileName
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, err
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, err
	}
	defaults.Merge(&fileCfg)

	var set explicitFields
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	if d := set.Traversal.MaxDepth; d != nil {
		if *d < 0 {
			return nil, fmt.Errorf("traversal.max_depth must not be negative, got %d", *d)
		}
		defaults.Traversal.MaxDepth = *d
	}
	return defaults, nil
}

// explicitFields records settings whose zero value is meaningful, so a value
// present in the file must win over the default even when it is zero.
type explicitFields struct {
	Traversal struct {
		MaxDepth *int `yaml:"max_depth"`
	} `yaml:"traversal"`
}

// LoadFromDir loads configuration from the specified directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Merge combines another config into this one, with other taking precedence
// for every non-zero field.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Catalog.Dirs) > 0 {
		c.Catalog.Dirs = other.Catalog.Dirs
	}
	if len(other.Catalog.FilesGlob) > 0 {
		c.Catalog.FilesGlob = other.Catalog.FilesGlob
	}
	if len(other.Catalog.ExcludeDirs) > 0 {
		c.Catalog.ExcludeDirs = other.Catalog.ExcludeDirs
	}
	if other.Catalog.ProjectID != "" {
		c.Catalog.ProjectID = other.Catalog.ProjectID
	}
	if other.Catalog.ProjectName != "" {
		c.Catalog.ProjectName = other.Catalog.ProjectName
	}

	if other.Traversal.MaxDepth > 0 {
		c.Traversal.MaxDepth = other.Traversal.MaxDepth
	}
	if other.Traversal.DepthLimit > 0 {
		c.Traversal.DepthLimit = other.Traversal.DepthLimit
	}

	mergeInt(&c.Layout.CharWidth, other.Layout.CharWidth)
	mergeInt(&c.Layout.MinLabelWidth, other.Layout.MinLabelWidth)
	mergeInt(&c.Layout.Padding, other.Layout.Padding)
	mergeInt(&c.Layout.NodeHeight, other.Layout.NodeHeight)
	mergeInt(&c.Layout.EventNodeHeight, other.Layout.EventNodeHeight)
	mergeInt(&c.Layout.EndpointHeight, other.Layout.EndpointHeight)

	mergeInt(&c.Server.Port, other.Server.Port)

	if other.Store.Dir != "" {
		c.Store.Dir = other.Store.Dir
	}

	if other.Watch.Enabled {
		c.Watch.Enabled = true
	}
	if other.Watch.Debounce > 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// IsExcludedDir checks if a directory should be skipped while scanning the catalog.
func (c *Config) IsExcludedDir(dir string) bool {
	base := filepath.Base(dir)
	for _, excluded := range c.Catalog.ExcludeDirs {
		if base == excluded {
			return true
		}
	}
	return false
}

// IsCatalogFile reports whether the file name matches one of the catalog globs.
func (c *Config) IsCatalogFile(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range c.Catalog.FilesGlob {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ClampDepth limits a requested traversal depth to the configured bounds.
// A negative depth selects the default.
func (c *Config) ClampDepth(depth int) int {
	if depth < 0 {
		return c.Traversal.MaxDepth
	}
	if c.Traversal.DepthLimit > 0 && depth > c.Traversal.DepthLimit {
		return c.Traversal.DepthLimit
	}
	return depth
}
