package config

import (
	"runtime"
	"time"
)

// Default values applied when the configuration omits them.
const (
	DefaultContentDir    = "content"
	DefaultOutputDir     = "public"
	DefaultServerAddr    = "127.0.0.1:4173"
	DefaultCachePath     = ".blogforge/cache.db"
	DefaultEventsSubject = "blogforge.build"
	DefaultEventsStream  = "BLOGFORGE"
	DefaultLanguage      = "zh-CN"

	DefaultWatchDebounce = 300 * time.Millisecond
	defaultQueueFactor   = 4
)

// ApplyDefaults fills in unset fields. It is idempotent and safe to call on a
// zero Config.
func (c *Config) ApplyDefaults() {
	if c.Site.Language == "" {
		c.Site.Language = DefaultLanguage
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "/"
	}
	if c.Content.Dir == "" {
		c.Content.Dir = DefaultContentDir
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.WatchDebounce == 0 {
		c.Server.WatchDebounce = Duration(DefaultWatchDebounce)
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = runtime.NumCPU()
	}
	if c.Build.QueueSize <= 0 {
		c.Build.QueueSize = c.Build.Workers * defaultQueueFactor
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
	if c.Events.Subject == "" {
		c.Events.Subject = DefaultEventsSubject
	}
	if c.Events.Stream == "" {
		c.Events.Stream = DefaultEventsStream
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}

// DefaultConfig returns a fully defaulted configuration for `init`.
func DefaultConfig() *Config {
	cfg := &Config{
		Site: SiteConfig{
			Title: "My Blog",
		},
		Server: ServerConfig{
			LiveReload: true,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
