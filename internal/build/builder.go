// Package build orchestrates a full site build: content discovery, the plugin
// transform stage on a bounded worker pool, page rendering, and the generated
// index.
package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/blogforge/internal/config"
	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
	"git.home.luguber.info/inful/blogforge/internal/frontmatter"
	"git.home.luguber.info/inful/blogforge/internal/metrics"
	"git.home.luguber.info/inful/blogforge/internal/plugin"
	"git.home.luguber.info/inful/blogforge/internal/plugin/builtin"
	"git.home.luguber.info/inful/blogforge/internal/worker"
)

// Builder runs builds against a frozen plugin execution order. A Builder is
// used from one goroutine at a time; the dev server serializes rebuilds.
type Builder struct {
	cfg        *config.Config
	dispatcher *plugin.Dispatcher
	cache      *Cache
	recorder   metrics.Recorder
	mode       plugin.Mode
	liveReload bool

	// chainKey invalidates cached transforms when the plugin order changes.
	chainKey string
}

// Option configures a Builder.
type Option func(*Builder)

// WithCache attaches a transform cache.
func WithCache(c *Cache) Option {
	return func(b *Builder) {
		b.cache = c
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		b.recorder = r
	}
}

// WithLiveReload injects the live-reload client script into rendered pages.
func WithLiveReload(enabled bool) Option {
	return func(b *Builder) {
		b.liveReload = enabled
	}
}

// NewBuilder creates a builder for the given configuration and dispatcher.
func NewBuilder(cfg *config.Config, dispatcher *plugin.Dispatcher, mode plugin.Mode, opts ...Option) *Builder {
	b := &Builder{
		cfg:        cfg,
		dispatcher: dispatcher,
		recorder:   metrics.NoopRecorder{},
		mode:       mode,
	}
	for _, opt := range opts {
		opt(b)
	}

	names := make([]string, 0, len(dispatcher.Order()))
	for _, d := range dispatcher.Order() {
		names = append(names, d.Name)
	}
	b.chainKey = strings.Join(names, ",")
	return b
}

// Result summarizes one finished build.
type Result struct {
	BuildID   string
	Documents int
	Duration  time.Duration
	// Hash fingerprints the emitted output; the live-reload hub broadcasts it
	// so clients can tell whether anything actually changed.
	Hash string
}

// Build runs one full build. BuildStart and BuildEnd hooks are dispatched
// around the transform stage; BuildEnd always runs, receiving the build error
// when there was one.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	buildID := uuid.NewString()
	logger := slog.With("build_id", buildID)
	logger.Info("Build starting", "content", b.cfg.Content.Dir, "output", b.cfg.Output.Dir)

	bc := &plugin.BuildContext{BuildID: buildID, Mode: b.mode, Config: b.cfg}
	documents, hash, buildErr := b.run(ctx, bc)
	bc.Documents = documents

	if endErr := b.dispatcher.BuildEnd(ctx, bc, buildErr); endErr != nil && buildErr == nil {
		buildErr = endErr
	}

	duration := time.Since(start)
	b.recorder.ObserveBuildDuration(duration)
	if buildErr != nil {
		outcome := metrics.OutcomeFailed
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
		}
		b.recorder.IncBuildOutcome(outcome)
		logger.Error("Build failed", "duration", duration, "error", buildErr)
		return nil, buildErr
	}

	b.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	b.recorder.AddDocumentsBuilt(documents)
	logger.Info("Build finished", "documents", documents, "duration", duration)

	return &Result{BuildID: buildID, Documents: documents, Duration: duration, Hash: hash}, nil
}

func (b *Builder) run(ctx context.Context, bc *plugin.BuildContext) (documents int, hash string, err error) {
	if err := b.dispatcher.BuildStart(ctx, bc); err != nil {
		return 0, "", err
	}

	pages, assets, err := b.discover()
	if err != nil {
		return 0, "", err
	}
	if err := os.MkdirAll(b.cfg.Output.Dir, 0o755); err != nil {
		return 0, "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityFatal, "creating output directory")
	}
	if b.liveReload {
		// The injected script tag references this file, so it must exist in
		// the output tree like any other asset.
		scriptPath := filepath.Join(b.cfg.Output.Dir, liveReloadScriptName)
		if err := os.WriteFile(scriptPath, []byte(liveReloadScript), 0o644); err != nil {
			return 0, "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "writing live-reload script")
		}
	}

	pool, err := worker.NewPool(ctx, b.cfg.Build.Workers, b.cfg.Build.QueueSize)
	if err != nil {
		return 0, "", err
	}

	var (
		mu         sync.Mutex
		posts      []PostInfo
		fileHashes = map[string]string{}
		built      int
		hasIndex   bool
		submitErr  error
	)

	for _, rel := range pages {
		rel := rel
		if rel == "index.md" {
			hasIndex = true
		}
		submitErr = pool.Submit(ctx, func(taskCtx context.Context) error {
			post, outHash, outPath, err := b.buildPage(taskCtx, rel)
			if err != nil {
				return err
			}
			if post == nil {
				// Draft skipped.
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			built++
			fileHashes[outPath] = outHash
			if outPath != "index.html" {
				posts = append(posts, *post)
			}
			return nil
		})
		if submitErr != nil {
			break
		}
	}

	if submitErr == nil {
		for _, rel := range assets {
			rel := rel
			submitErr = pool.Submit(ctx, func(context.Context) error {
				outHash, err := b.copyAsset(rel)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				fileHashes[rel] = outHash
				return nil
			})
			if submitErr != nil {
				break
			}
		}
	}

	if err := pool.Wait(); err != nil {
		return 0, "", err
	}
	if submitErr != nil {
		return 0, "", submitErr
	}
	// Workers drain without executing once canceled, so a canceled build can
	// reach this point without a task error.
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}

	// The index listing is generated unless the content tree provides its own
	// index.md.
	if !hasIndex {
		sort.Slice(posts, func(i, j int) bool {
			if !posts[i].Date.Equal(posts[j].Date) {
				return posts[i].Date.After(posts[j].Date)
			}
			return posts[i].URL < posts[j].URL
		})
		idxHash, err := b.writeIndex(posts)
		if err != nil {
			return 0, "", err
		}
		fileHashes["index.html"] = idxHash
		built++
	}

	return built, combineHashes(fileHashes), nil
}

// discover walks the content tree and partitions files into Markdown pages
// and static assets. Dotfiles and underscore-prefixed paths are skipped.
func (b *Builder) discover() (pages []string, assets []string, err error) {
	root := b.cfg.Content.Dir
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if p != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasSuffix(rel, ".md") {
			pages = append(pages, rel)
		} else {
			assets = append(assets, rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, bferrors.Wrap(walkErr, bferrors.CategoryFileSystem, bferrors.SeverityFatal, "scanning content directory").WithContext("dir", root)
	}
	sort.Strings(pages)
	sort.Strings(assets)
	return pages, assets, nil
}

// buildPage reads one Markdown source, runs it through the transform stage
// (consulting the cache first), wraps it in the page shell, and writes the
// HTML output. It returns nil PostInfo for skipped drafts.
func (b *Builder) buildPage(ctx context.Context, rel string) (*PostInfo, string, string, error) {
	raw, err := os.ReadFile(filepath.Join(b.cfg.Content.Dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, "", "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "reading source").WithContext("path", rel)
	}

	fm, body, had, _, err := frontmatter.Split(raw)
	if err != nil {
		return nil, "", "", bferrors.Wrap(err, bferrors.CategoryValidation, bferrors.SeverityError, "splitting front matter").WithContext("path", rel)
	}
	var meta *frontmatter.Metadata
	if had {
		meta, err = frontmatter.ParseMetadata(fm)
		if err != nil {
			return nil, "", "", bferrors.Wrap(err, bferrors.CategoryValidation, bferrors.SeverityError, "parsing front matter").WithContext("path", rel)
		}
	}
	if meta != nil && meta.Draft && !b.cfg.Content.IncludeDrafts {
		slog.Debug("Skipping draft", "path", rel)
		return nil, "", "", nil
	}

	content, err := b.transform(ctx, rel, raw, body, meta)
	if err != nil {
		return nil, "", "", err
	}

	outRel := strings.TrimSuffix(rel, ".md") + ".html"
	// An explicit slug in the front matter replaces the source file name.
	if meta != nil && meta.Slug != "" {
		if slug := builtin.Slugify(meta.Slug); slug != "" {
			outRel = path.Join(path.Dir(rel), slug+".html")
		}
	}
	outPath := filepath.Join(b.cfg.Output.Dir, filepath.FromSlash(outRel))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, "", "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "creating output subdirectory")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, "", "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "creating output file").WithContext("path", outRel)
	}
	hasher := sha256.New()
	if err := renderPage(io.MultiWriter(out, hasher), b.cfg.Site, meta, content, b.liveReload); err != nil {
		_ = out.Close()
		return nil, "", "", bferrors.Wrap(err, bferrors.CategoryBuild, bferrors.SeverityError, "rendering page").WithContext("path", outRel)
	}
	if err := out.Close(); err != nil {
		return nil, "", "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "closing output file").WithContext("path", outRel)
	}

	post := &PostInfo{
		Title: strings.TrimSuffix(path.Base(rel), ".md"),
		URL:   joinBase(b.cfg.Site.BaseURL, outRel),
	}
	if meta != nil {
		if meta.Title != "" {
			post.Title = meta.Title
		}
		post.Date = meta.Date
		post.Description = meta.Description
		post.Tags = meta.Tags
	}
	return post, hex.EncodeToString(hasher.Sum(nil)), outRel, nil
}

// transform runs the plugin transform stage, using the cache when enabled.
// The cache key covers the raw source and the plugin chain, so edits and
// plugin configuration changes both invalidate.
func (b *Builder) transform(ctx context.Context, rel string, raw, body []byte, meta *frontmatter.Metadata) ([]byte, error) {
	var key string
	if b.cache != nil {
		sum := sha256.Sum256(append(raw, []byte("\x00"+b.chainKey)...))
		key = hex.EncodeToString(sum[:])
		if cached, ok, err := b.cache.Get(ctx, rel, key); err != nil {
			slog.Warn("Cache lookup failed", "path", rel, "error", err)
		} else if ok {
			b.recorder.IncCacheHit()
			return cached, nil
		}
		b.recorder.IncCacheMiss()
	}

	res, err := b.dispatcher.Transform(ctx, &plugin.TransformInput{Path: rel, Content: body, Meta: meta})
	if err != nil {
		return nil, err
	}
	content := body
	if res != nil {
		content = res.Content
	}

	if b.cache != nil {
		if err := b.cache.Put(ctx, rel, key, content); err != nil {
			slog.Warn("Cache store failed", "path", rel, "error", err)
		}
	}
	return content, nil
}

func (b *Builder) copyAsset(rel string) (string, error) {
	src := filepath.Join(b.cfg.Content.Dir, filepath.FromSlash(rel))
	dst := filepath.Join(b.cfg.Output.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "creating asset directory")
	}

	in, err := os.Open(src)
	if err != nil {
		return "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "opening asset").WithContext("path", rel)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "creating asset").WithContext("path", rel)
	}
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hasher), in); err != nil {
		_ = out.Close()
		return "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "copying asset").WithContext("path", rel)
	}
	if err := out.Close(); err != nil {
		return "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "closing asset").WithContext("path", rel)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (b *Builder) writeIndex(posts []PostInfo) (string, error) {
	outPath := filepath.Join(b.cfg.Output.Dir, "index.html")
	out, err := os.Create(outPath)
	if err != nil {
		return "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "creating index file")
	}
	hasher := sha256.New()
	if err := renderIndex(io.MultiWriter(out, hasher), b.cfg.Site, posts, b.liveReload); err != nil {
		_ = out.Close()
		return "", bferrors.Wrap(err, bferrors.CategoryBuild, bferrors.SeverityError, "rendering index")
	}
	if err := out.Close(); err != nil {
		return "", bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "closing index file")
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// combineHashes derives a single fingerprint for the emitted file set,
// independent of build order.
func combineHashes(files map[string]string) string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hasher := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(hasher, "%s:%s\n", k, files[k])
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func joinBase(baseURL, rel string) string {
	if baseURL == "" || baseURL == "/" {
		return "/" + rel
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + rel
}
