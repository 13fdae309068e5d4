// Package config loads the viewer configuration (.cv/config.yaml), discovers
// record files on disk and keeps the .cv directory out of git.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/canopy/pkg/loader"
)

// DirName is the per-project configuration directory.
const DirName = ".cv"

// FileName is the configuration file inside DirName.
const FileName = "config.yaml"

// DirEnv overrides the configuration directory.
const DirEnv = "CV_DIR"

// Config represents a viewer configuration file (.cv/config.yaml)
type Config struct {
	// Sources lists the record sources, concatenated in order
	Sources []SourceConfig `yaml:"sources,omitempty" json:"sources,omitempty"`

	// View holds presentation defaults
	View ViewConfig `yaml:"view,omitempty" json:"view,omitempty"`

	// Watch configures reloading when file sources change
	Watch WatchConfig `yaml:"watch,omitempty" json:"watch,omitempty"`

	// Discovery configures the search for record files when no source is set
	Discovery DiscoveryConfig `yaml:"discovery,omitempty" json:"discovery,omitempty"`
}

// SourceConfig describes one record source.
type SourceConfig struct {
	// Name is a display name (default: the location's base name)
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Location is a file path, SQLite database path or http(s) URL
	Location string `yaml:"location" json:"location"`

	// Format overrides detection: json, jsonl, yaml or sqlite
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Query replaces the default SQLite query
	Query string `yaml:"query,omitempty" json:"query,omitempty"`

	// Enabled controls whether this source is loaded (default: true)
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// ViewConfig holds presentation defaults.
type ViewConfig struct {
	// CollapseAll starts with every node collapsed
	CollapseAll bool `yaml:"collapse_all,omitempty" json:"collapse_all,omitempty"`

	// IndentUnit is the pixel width of one indent level in HTML, SVG and PNG output (default: 20)
	IndentUnit int `yaml:"indent_unit,omitempty" json:"indent_unit,omitempty"`

	// HideDetail hides the TUI detail pane
	HideDetail bool `yaml:"hide_detail,omitempty" json:"hide_detail,omitempty"`
}

// WatchConfig configures live reload.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty" json:"debounce,omitempty"`
}

// DiscoveryConfig controls the record file search.
type DiscoveryConfig struct {
	// ScanPaths are directories searched for record files (default: ".")
	ScanPaths []string `yaml:"scan_paths,omitempty" json:"scan_paths,omitempty"`

	// Exclude lists directory names to skip
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// MaxDepth limits directory traversal depth (default: 3)
	MaxDepth int `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
}

// DefaultIndentUnit matches the 20px step of the rendered tree.
const DefaultIndentUnit = 20

// DefaultMaxDepth bounds discovery when the config sets none.
const DefaultMaxDepth = 3

// DefaultExcludePatterns returns directory names skipped during discovery
func DefaultExcludePatterns() []string {
	return []string{
		"node_modules",
		"vendor",
		".git",
		"dist",
		"build",
		"target",
	}
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.View.IndentUnit <= 0 {
		c.View.IndentUnit = DefaultIndentUnit
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = loader.DefaultDebounce
	}
	if len(c.Discovery.ScanPaths) == 0 {
		c.Discovery.ScanPaths = []string{"."}
	}
	if len(c.Discovery.Exclude) == 0 {
		c.Discovery.Exclude = DefaultExcludePatterns()
	}
	if c.Discovery.MaxDepth <= 0 {
		c.Discovery.MaxDepth = DefaultMaxDepth
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if strings.TrimSpace(src.Location) == "" {
			return fmt.Errorf("sources[%d]: location is required", i)
		}
		switch loader.Format(src.Format) {
		case loader.FormatAuto, loader.FormatJSON, loader.FormatJSONL, loader.FormatYAML, loader.FormatSQLite:
		default:
			return fmt.Errorf("sources[%d]: unknown format %q", i, src.Format)
		}
		if seen[src.Location] {
			return fmt.Errorf("sources[%d]: duplicate location %q", i, src.Location)
		}
		seen[src.Location] = true
	}
	return nil
}

// GetName returns the effective name for a source
func (s *SourceConfig) GetName() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.Location)
}

// IsEnabled returns whether the source is enabled
func (s *SourceConfig) IsEnabled() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// Source builds the loader for this entry. Relative file locations resolve
// against baseDir.
func (s *SourceConfig) Source(baseDir string) (loader.Source, error) {
	location := expandHome(strings.TrimSpace(s.Location))
	if location == "" {
		return nil, fmt.Errorf("source %q: location is required", s.GetName())
	}
	isURL := strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
	if !isURL && baseDir != "" && !filepath.IsAbs(location) {
		location = filepath.Join(baseDir, location)
	}

	format := loader.Format(s.Format)
	switch {
	case isURL:
		src := loader.NewHTTPSource(location, nil)
		src.Format = format
		return src, nil
	case format == loader.FormatSQLite, format == loader.FormatAuto && loader.DetectFormat(location) == loader.FormatSQLite:
		return loader.NewSQLiteSource(location, s.Query), nil
	default:
		return loader.NewFileSource(location, format), nil
	}
}

// OpenSources builds a single source from every enabled entry.
func (c *Config) OpenSources(baseDir string) (loader.Source, error) {
	var sources []loader.Source
	for i := range c.Sources {
		if !c.Sources[i].IsEnabled() {
			continue
		}
		src, err := c.Sources[i].Source(baseDir)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no enabled sources")
	}
	return loader.NewMultiSource(sources...), nil
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Dir returns the configuration directory for a project: $CV_DIR when set,
// else projectDir/.cv.
func Dir(projectDir string) string {
	if env := strings.TrimSpace(os.Getenv(DirEnv)); env != "" {
		return expandHome(env)
	}
	return filepath.Join(projectDir, DirName)
}

// FindConfig searches for .cv/config.yaml starting from dir and walking up.
// $CV_DIR short-circuits the search.
func FindConfig(dir string) (string, error) {
	if env := strings.TrimSpace(os.Getenv(DirEnv)); env != "" {
		candidate := filepath.Join(expandHome(env), FileName)
		if _, err := os.Stat(candidate); err != nil {
			return "", err
		}
		return candidate, nil
	}

	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	for {
		candidate := filepath.Join(dir, DirName, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
