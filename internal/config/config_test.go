package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blogforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "site:\n  title: Test Blog\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Test Blog", cfg.Site.Title)
	assert.Equal(t, DefaultContentDir, cfg.Content.Dir)
	assert.Equal(t, DefaultOutputDir, cfg.Output.Dir)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultWatchDebounce, cfg.Server.WatchDebounce.Std())
	assert.Positive(t, cfg.Build.Workers)
	assert.Positive(t, cfg.Build.QueueSize)
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, "server:\n  watch_debounce: 750ms\n  rebuild_interval: 5m\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Server.WatchDebounce.Std())
	assert.Equal(t, 5*time.Minute, cfg.Server.RebuildInterval.Std())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "server:\n  watch_debounce: soon\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateSameContentAndOutput(t *testing.T) {
	path := writeConfig(t, "content:\n  dir: site\noutput:\n  dir: site\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateEventsRequireURL(t *testing.T) {
	path := writeConfig(t, "events:\n  enabled: true\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLOGFORGE_CONTENT_DIR", "articles")
	t.Setenv("BLOGFORGE_LOG_LEVEL", "DEBUG")
	t.Setenv("BLOGFORGE_WORKERS", "3")

	path := writeConfig(t, "site:\n  title: Env\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "articles", cfg.Content.Dir)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Build.Workers)
}

func TestPluginsDisabled(t *testing.T) {
	path := writeConfig(t, "plugins:\n  disabled:\n    - linkcheck\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Plugins.IsDisabled("linkcheck"))
	assert.False(t, cfg.Plugins.IsDisabled("markdown"))
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Site.Title = "Round Trip"
	path := filepath.Join(t.TempDir(), "out.yaml")

	require.NoError(t, cfg.Save(path))
	back, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Round Trip", back.Site.Title)
	assert.Equal(t, cfg.Server.WatchDebounce, back.Server.WatchDebounce)
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("WARNING"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("bogus"))
}
