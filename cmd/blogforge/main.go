package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogforge/internal/build"
	"git.home.luguber.info/inful/blogforge/internal/config"
	"git.home.luguber.info/inful/blogforge/internal/events"
	"git.home.luguber.info/inful/blogforge/internal/frontmatter"
	"git.home.luguber.info/inful/blogforge/internal/metrics"
	"git.home.luguber.info/inful/blogforge/internal/plugin"
	"git.home.luguber.info/inful/blogforge/internal/plugin/builtin"
	"git.home.luguber.info/inful/blogforge/internal/server"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"blogforge.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output      string `short:"o" help:"Output directory, overrides configuration"`
		StrictLinks bool   `help:"Fail the build on broken internal links"`
		NoCache     bool   `help:"Disable the transform cache"`
		Drafts      bool   `help:"Include draft posts"`
	} `cmd:"" help:"Build the site once and exit"`

	Serve struct {
		Addr    string `help:"Listen address, overrides configuration"`
		NoWatch bool   `help:"Serve without watching content for changes"`
	} `cmd:"" help:"Build the site and serve it with live reload"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Scaffold a configuration file and sample content"`

	New struct {
		Title string `arg:"" help:"Title of the new post"`
		Draft bool   `help:"Mark the post as a draft"`
	} `cmd:"" help:"Create a new post in the content directory"`

	Plugins struct {
		Mode string `help:"Resolve order for this mode (serve or build)" default:"build" enum:"serve,build"`
	} `cmd:"" help:"Show the resolved plugin execution order"`
}

func main() {
	ctx := kong.Parse(&CLI)

	switch ctx.Command() {
	case "build":
		if err := runBuild(); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	case "new <title>":
		if err := runNew(CLI.New.Title, CLI.New.Draft); err != nil {
			slog.Error("Creating post failed", "error", err)
			os.Exit(1)
		}
	case "plugins":
		if err := runPlugins(plugin.Mode(CLI.Plugins.Mode)); err != nil {
			slog.Error("Listing plugins failed", "error", err)
			os.Exit(1)
		}
	}
}

func loadConfig() (*config.Config, error) {
	config.LoadEnvFiles()
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	cfg.SetupLogging(CLI.Verbose)
	return cfg, nil
}

// registerBuiltins fills the registry with the shipped plugins, honoring the
// configured disabled list.
func registerBuiltins(reg *plugin.Registry, cfg *config.Config, pub *events.Publisher, strictLinks bool) error {
	candidates := []*plugin.Descriptor{
		builtin.Markdown(),
		builtin.LinkCheck(cfg.Output.Dir, strictLinks),
	}
	if pub != nil {
		candidates = append(candidates, builtin.Events(pub))
	}
	for _, d := range candidates {
		if cfg.Plugins.IsDisabled(d.Name) {
			slog.Info("Plugin disabled by configuration", "plugin", d.Name)
			continue
		}
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func openPublisher(ctx context.Context, cfg *config.Config) (*events.Publisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	pub, err := events.NewPublisher(ctx, cfg.Events)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func runBuild() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Build.Output != "" {
		cfg.Output.Dir = CLI.Build.Output
	}
	if CLI.Build.Drafts {
		cfg.Content.IncludeDrafts = true
	}
	strict := cfg.Build.StrictLinks || CLI.Build.StrictLinks

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := openPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	reg := plugin.NewRegistry()
	if err := registerBuiltins(reg, cfg, pub, strict); err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promReg)
	dispatcher := plugin.NewDispatcher(reg.Order(plugin.ModeBuild), plugin.WithRecorder(recorder))

	if err := dispatcher.ConfigResolved(ctx, cfg); err != nil {
		return err
	}

	opts := []build.Option{build.WithRecorder(recorder)}
	if cfg.Cache.Enabled && !CLI.Build.NoCache {
		cache, err := build.OpenCache(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				slog.Warn("Failed to close transform cache", "error", err)
			}
		}()
		opts = append(opts, build.WithCache(cache))
	}

	builder := build.NewBuilder(cfg, dispatcher, plugin.ModeBuild, opts...)
	res, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	slog.Info("Build complete",
		"build_id", res.BuildID,
		"documents", res.Documents,
		"duration", res.Duration,
		"output", cfg.Output.Dir)
	return nil
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Serve.Addr != "" {
		cfg.Server.Addr = CLI.Serve.Addr
	}
	if CLI.Serve.NoWatch {
		cfg.Server.WatchDebounce = 0
	}
	// Drafts are part of the editing loop.
	cfg.Content.IncludeDrafts = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := openPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	reg := plugin.NewRegistry()
	if err := registerBuiltins(reg, cfg, pub, cfg.Build.StrictLinks); err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promReg)
	dispatcher := plugin.NewDispatcher(reg.Order(plugin.ModeServe), plugin.WithRecorder(recorder))

	if err := dispatcher.ConfigResolved(ctx, cfg); err != nil {
		return err
	}

	opts := []build.Option{
		build.WithRecorder(recorder),
		build.WithLiveReload(cfg.Server.LiveReload),
	}
	if cfg.Cache.Enabled {
		cache, err := build.OpenCache(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				slog.Warn("Failed to close transform cache", "error", err)
			}
		}()
		opts = append(opts, build.WithCache(cache))
	}

	builder := build.NewBuilder(cfg, dispatcher, plugin.ModeServe, opts...)
	srv := server.New(cfg, builder, dispatcher, server.WithMetrics(promReg, recorder))
	return srv.Run(ctx)
}

func runInit(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		return err
	}
	slog.Info("Configuration written", "path", path)

	contentDir := cfg.Content.Dir
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return err
	}
	samplePath := filepath.Join(contentDir, "hello-world.md")
	if _, err := os.Stat(samplePath); err == nil && !force {
		return nil
	}
	if err := os.WriteFile(samplePath, []byte(samplePost), 0o644); err != nil {
		return err
	}
	slog.Info("Sample post written", "path", samplePath)
	return nil
}

// runNew scaffolds a post with typed front matter. The slugified title names
// the file.
func runNew(title string, draft bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slug := builtin.Slugify(title)
	if slug == "" {
		return fmt.Errorf("title %q produces an empty slug", title)
	}
	target := filepath.Join(cfg.Content.Dir, slug+".md")
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("post %s already exists", target)
	}

	meta := &frontmatter.Metadata{
		Title:  title,
		Date:   time.Now(),
		Author: cfg.Site.Author,
		Draft:  draft,
	}
	raw, err := meta.Serialize()
	if err != nil {
		return err
	}

	body := []byte("\n# " + title + "\n")
	doc := frontmatter.Join(raw, body, true, frontmatter.DefaultStyle)

	if err := os.MkdirAll(cfg.Content.Dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, doc, 0o644); err != nil {
		return err
	}
	slog.Info("Post created", "path", target, "draft", draft)
	return nil
}

func runPlugins(mode plugin.Mode) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := plugin.NewRegistry()
	if err := registerBuiltins(reg, cfg, nil, cfg.Build.StrictLinks); err != nil {
		return err
	}
	if cfg.Events.Enabled && !cfg.Plugins.IsDisabled(builtin.EventsName) {
		// Shown in the order without connecting to the broker.
		if err := reg.Register(builtin.Events(nil)); err != nil {
			return err
		}
	}

	fmt.Printf("Plugin execution order (%s mode):\n", mode)
	for i, d := range reg.Order(mode) {
		enforce := string(d.Enforce)
		if enforce == "" {
			enforce = "normal"
		}
		apply := string(d.Apply)
		if apply == "" {
			apply = "always"
		}
		fmt.Printf("  %d. %s (enforce: %s, apply: %s)\n", i+1, d.Name, enforce, apply)
	}
	return nil
}

const samplePost = `---
title: Hello, World
date: 2024-01-01
tags: [meta]
description: A first post to verify the toolchain.
---

# Hello, World

Welcome to your new blog. Edit this file and run ` + "`blogforge serve`" + `
to see changes live.
`
