// Package config loads and validates the Blogforge YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
)

// Config is the root configuration for a Blogforge site.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Content ContentConfig `yaml:"content"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Build   BuildConfig   `yaml:"build"`
	Cache   CacheConfig   `yaml:"cache"`
	Events  EventsConfig  `yaml:"events"`
	Logging LoggingConfig `yaml:"logging"`
	Plugins PluginsConfig `yaml:"plugins"`
}

// SiteConfig describes the site being generated.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	BaseURL     string `yaml:"base_url"`
	Language    string `yaml:"language"`
}

// ContentConfig locates the Markdown sources.
type ContentConfig struct {
	Dir string `yaml:"dir"`
	// IncludeDrafts builds documents whose front matter marks them draft.
	IncludeDrafts bool `yaml:"include_drafts"`
}

// OutputConfig locates the generated site.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig controls the dev server.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	LiveReload bool   `yaml:"live_reload"`
	// WatchDebounce is the quiet window before a file change triggers a rebuild.
	WatchDebounce Duration `yaml:"watch_debounce"`
	// RebuildInterval schedules periodic full rebuilds as a consistency
	// backstop; zero disables them.
	RebuildInterval Duration `yaml:"rebuild_interval"`
}

// BuildConfig controls the transform worker pool.
type BuildConfig struct {
	Workers     int  `yaml:"workers"`
	QueueSize   int  `yaml:"queue_size"`
	StrictLinks bool `yaml:"strict_links"`
}

// CacheConfig controls the transform cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EventsConfig controls optional NATS build-event publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// PluginsConfig enables or disables plugins by name.
type PluginsConfig struct {
	Disabled []string `yaml:"disabled"`
}

// IsDisabled reports whether the named plugin is disabled by configuration.
func (p PluginsConfig) IsDisabled(name string) bool {
	for _, d := range p.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// Duration wraps time.Duration with YAML string parsing ("500ms", "2s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads, defaults, and validates a configuration file. Environment
// overrides are applied between parsing and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.CategoryConfig, bferrors.SeverityFatal, "reading configuration").WithContext("path", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, bferrors.Wrap(err, bferrors.CategoryConfig, bferrors.SeverityFatal, "parsing configuration").WithContext("path", path)
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return bferrors.Wrap(err, bferrors.CategoryConfig, bferrors.SeverityError, "serializing configuration")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "writing configuration").WithContext("path", path)
	}
	return nil
}
