package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogforge/internal/config"
	"git.home.luguber.info/inful/blogforge/internal/plugin"
	"git.home.luguber.info/inful/blogforge/internal/plugin/builtin"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Site:    config.SiteConfig{Title: "Test Blog"},
		Content: config.ContentConfig{Dir: filepath.Join(root, "content")},
		Output:  config.OutputConfig{Dir: filepath.Join(root, "public")},
	}
	cfg.ApplyDefaults()
	require.NoError(t, os.MkdirAll(cfg.Content.Dir, 0o755))
	return cfg
}

func writeContent(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	p := filepath.Join(cfg.Content.Dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func defaultDispatcher() *plugin.Dispatcher {
	r := plugin.NewRegistry()
	_ = r.Register(builtin.Markdown())
	return plugin.NewDispatcher(r.Order(plugin.ModeBuild))
}

func TestBuildRendersMarkdownPosts(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "posts/react-basics.md", "---\ntitle: React 基础\ndate: 2024-03-01\ntags:\n  - react\n---\n# React\n\nHooks 入门。\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Documents) // post + generated index
	assert.NotEmpty(t, res.BuildID)
	assert.NotEmpty(t, res.Hash)

	page := readOutput(t, cfg, "posts/react-basics.html")
	assert.Contains(t, page, "<h1>React 基础</h1>")
	assert.Contains(t, page, "Hooks 入门")
	assert.Contains(t, page, "<title>React 基础 · Test Blog</title>")

	index := readOutput(t, cfg, "index.html")
	assert.Contains(t, index, `href="/posts/react-basics.html"`)
	assert.Contains(t, index, "React 基础")
}

func TestBuildSkipsDrafts(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "done.md", "---\ntitle: Done\n---\nready\n")
	writeContent(t, cfg, "wip.md", "---\ntitle: WIP\ndraft: true\n---\nnot yet\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "done.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "wip.html"))
}

func TestBuildIncludesDraftsWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Content.IncludeDrafts = true
	writeContent(t, cfg, "wip.md", "---\ntitle: WIP\ndraft: true\n---\nnot yet\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "wip.html"))
}

func TestBuildCopiesAssets(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "posts/pic.png", "not really a png")
	writeContent(t, cfg, "posts/post.md", "see ![pic](pic.png)\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "not really a png", readOutput(t, cfg, "posts/pic.png"))
}

func TestBuildSkipsHiddenAndUnderscorePaths(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "visible.md", "ok\n")
	writeContent(t, cfg, "_drafts/hidden.md", "hidden\n")
	writeContent(t, cfg, ".obsidian/workspace.md", "editor state\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "visible.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "_drafts", "hidden.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, ".obsidian", "workspace.html"))
}

func TestBuildOwnIndexSuppressesGeneratedListing(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "index.md", "---\ntitle: Home\n---\nwelcome\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Documents)

	index := readOutput(t, cfg, "index.html")
	assert.Contains(t, index, "welcome")
	assert.NotContains(t, index, `class="posts"`)
}

func TestBuildUsesCache(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "post.md", "# cached\n")

	cache, err := OpenCache(":memory:")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	var transforms atomic.Int32
	counting := &plugin.Descriptor{
		Name: "counting-markdown",
		Transform: func(ctx context.Context, in *plugin.TransformInput) (*plugin.TransformResult, error) {
			transforms.Add(1)
			return builtin.Markdown().Transform(ctx, in)
		},
	}
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(counting))
	dp := plugin.NewDispatcher(r.Order(plugin.ModeBuild))

	b := NewBuilder(cfg, dp, plugin.ModeBuild, WithCache(cache))
	_, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), transforms.Load())

	// Unchanged source: the cache should satisfy the second build.
	_, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), transforms.Load())

	// Edited source: transform runs again.
	writeContent(t, cfg, "post.md", "# cached, edited\n")
	_, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), transforms.Load())
}

func TestBuildHashStableAcrossIdenticalBuilds(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "a.md", "---\ntitle: A\ndate: 2024-01-01\n---\nalpha\n")
	writeContent(t, cfg, "b.md", "---\ntitle: B\ndate: 2024-01-02\n---\nbeta\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	res1, err := b.Build(context.Background())
	require.NoError(t, err)
	res2, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, res1.Hash, res2.Hash)

	writeContent(t, cfg, "a.md", "---\ntitle: A\ndate: 2024-01-01\n---\nalpha changed\n")
	res3, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, res1.Hash, res3.Hash)
}

func TestBuildEndSeesFailure(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "bad.md", "content\n")

	var sawErr atomic.Bool
	failing := &plugin.Descriptor{
		Name: "failing",
		Transform: func(context.Context, *plugin.TransformInput) (*plugin.TransformResult, error) {
			return nil, assert.AnError
		},
		BuildEnd: func(_ context.Context, _ *plugin.BuildContext, buildErr error) error {
			sawErr.Store(buildErr != nil)
			return nil
		},
	}
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(failing))

	b := NewBuilder(cfg, plugin.NewDispatcher(r.Order(plugin.ModeBuild)), plugin.ModeBuild)
	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, sawErr.Load(), "BuildEnd must receive the build error")
}

func TestBuildIndexSortedByDateDescending(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "old.md", "---\ntitle: Old Post\ndate: 2023-01-01\n---\nx\n")
	writeContent(t, cfg, "new.md", "---\ntitle: New Post\ndate: 2025-06-01\n---\ny\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	index := readOutput(t, cfg, "index.html")
	newIdx := strings.Index(index, "New Post")
	oldIdx := strings.Index(index, "Old Post")
	require.Positive(t, newIdx)
	require.Positive(t, oldIdx)
	assert.Less(t, newIdx, oldIdx, "newest post must be listed first")
}

func TestBuildLiveReloadInjection(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "post.md", "hello\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeServe, WithLiveReload(true))
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, readOutput(t, cfg, "post.html"), "/livereload.js")
	// The script the pages reference is emitted alongside them.
	assert.Contains(t, readOutput(t, cfg, "livereload.js"), "EventSource")
}

func TestBuildLiveReloadPassesStrictLinkCheck(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "post.md", "---\ntitle: Post\n---\nbody\n")

	r := plugin.NewRegistry()
	require.NoError(t, r.Register(builtin.Markdown()))
	require.NoError(t, r.Register(builtin.LinkCheck(cfg.Output.Dir, true)))
	d := plugin.NewDispatcher(r.Order(plugin.ModeServe))

	b := NewBuilder(cfg, d, plugin.ModeServe, WithLiveReload(true))
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cfg.Output.Dir, "livereload.js"))
	assert.NoError(t, err)
}

func TestBuildHonorsExplicitSlug(t *testing.T) {
	cfg := testConfig(t)
	writeContent(t, cfg, "posts/2024-03-01-first.md", "---\ntitle: React 基础入门\nslug: React 基础入门\n---\nbody\n")

	b := NewBuilder(cfg, defaultDispatcher(), plugin.ModeBuild)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	page := readOutput(t, cfg, "posts/react-基础入门.html")
	assert.Contains(t, page, "React 基础入门")

	_, err = os.Stat(filepath.Join(cfg.Output.Dir, "posts", "2024-03-01-first.html"))
	assert.True(t, os.IsNotExist(err))
}
