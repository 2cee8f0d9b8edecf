package config

import (
	"strings"

	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
)

// Validate checks the configuration for contradictions the rest of the system
// assumes away. It expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	if c.Content.Dir == "" {
		return bferrors.ConfigError("content.dir must not be empty")
	}
	if c.Output.Dir == "" {
		return bferrors.ConfigError("output.dir must not be empty")
	}
	if c.Content.Dir == c.Output.Dir {
		return bferrors.ConfigError("content.dir and output.dir must differ").
			WithContext("dir", c.Content.Dir)
	}
	if !strings.HasPrefix(c.Site.BaseURL, "/") && !strings.Contains(c.Site.BaseURL, "://") {
		return bferrors.ConfigError("site.base_url must be absolute or start with /").
			WithContext("base_url", c.Site.BaseURL)
	}
	if c.Build.Workers <= 0 {
		return bferrors.ConfigError("build.workers must be positive")
	}
	if c.Build.QueueSize <= 0 {
		return bferrors.ConfigError("build.queue_size must be positive")
	}
	if c.Server.WatchDebounce < 0 {
		return bferrors.ConfigError("server.watch_debounce must not be negative")
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return bferrors.ConfigError("events.url is required when events are enabled")
	}
	return nil
}
