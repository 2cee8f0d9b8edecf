// Package plugin implements the Blogforge plugin pipeline: named descriptors
// carrying optional lifecycle hooks, a deterministic execution order derived
// from their enforcement phase, and a dispatcher that sequences hook calls.
package plugin

import (
	"context"
	"fmt"
	"net/http"

	"git.home.luguber.info/inful/blogforge/internal/config"
	"git.home.luguber.info/inful/blogforge/internal/frontmatter"
)

// Enforce controls where in the execution order a plugin runs.
// The zero value places the plugin in the middle (normal) bucket.
type Enforce string

const (
	EnforcePre    Enforce = "pre"
	EnforceNormal Enforce = ""
	EnforcePost   Enforce = "post"
)

// IsValid returns true if the enforcement phase is recognized.
func (e Enforce) IsValid() bool {
	switch e {
	case EnforcePre, EnforceNormal, EnforcePost:
		return true
	default:
		return false
	}
}

// Apply restricts a plugin to a pipeline mode. The zero value applies to both.
type Apply string

const (
	ApplyAlways Apply = ""
	ApplyServe  Apply = "serve"
	ApplyBuild  Apply = "build"
)

// IsValid returns true if the apply restriction is recognized.
func (a Apply) IsValid() bool {
	switch a {
	case ApplyAlways, ApplyServe, ApplyBuild:
		return true
	default:
		return false
	}
}

// Mode identifies which pipeline is running.
type Mode string

const (
	ModeServe Mode = "serve"
	ModeBuild Mode = "build"
)

// TransformInput is the per-document payload given to Transform hooks.
type TransformInput struct {
	// Path is the source path relative to the content root.
	Path string

	// Content is the document body with front matter removed.
	Content []byte

	// Meta is the parsed front matter, nil when the document has none.
	Meta *frontmatter.Metadata
}

// TransformResult is the output of a Transform hook. A nil result means
// "no change, try the next plugin in order".
type TransformResult struct {
	Content   []byte
	SourceMap []byte
}

// BuildContext carries per-build state into BuildStart/BuildEnd hooks.
type BuildContext struct {
	BuildID   string
	Mode      Mode
	Config    *config.Config
	Documents int
}

// ServerContext lets ConfigureServer hooks extend the dev server before it
// starts listening.
type ServerContext struct {
	Addr string
	Mux  *http.ServeMux
}

// Descriptor is a named bundle of optional lifecycle hooks. Any nil hook is
// simply skipped by the dispatcher. Descriptors are built once at startup and
// must not be mutated afterwards; state a hook needs across calls should live
// in its closure.
type Descriptor struct {
	// Name uniquely identifies the plugin. Registering a second descriptor
	// with the same name replaces the first.
	Name string

	// Enforce selects the execution-order bucket (pre, normal, post).
	Enforce Enforce

	// Apply restricts the plugin to serve or build mode.
	Apply Apply

	// ConfigResolved runs once after configuration load, before ordering is
	// consumed by any pipeline.
	ConfigResolved func(ctx context.Context, cfg *config.Config) error

	// ConfigureServer runs in serve mode before the dev server starts.
	ConfigureServer func(ctx context.Context, srv *ServerContext) error

	// BuildStart runs at the beginning of every build.
	BuildStart func(ctx context.Context, bc *BuildContext) error

	// Transform processes one document. Returning (nil, nil) passes the
	// document to the next plugin unchanged.
	Transform func(ctx context.Context, in *TransformInput) (*TransformResult, error)

	// BuildEnd runs after the build finished; buildErr is non-nil when the
	// build failed.
	BuildEnd func(ctx context.Context, bc *BuildContext, buildErr error) error
}

// Validate checks the descriptor fields.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	if d.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if !d.Enforce.IsValid() {
		return fmt.Errorf("plugin %s: invalid enforce phase %q", d.Name, d.Enforce)
	}
	if !d.Apply.IsValid() {
		return fmt.Errorf("plugin %s: invalid apply restriction %q", d.Name, d.Apply)
	}
	return nil
}

// appliesTo reports whether the descriptor participates in the given mode.
func (d *Descriptor) appliesTo(mode Mode) bool {
	switch d.Apply {
	case ApplyServe:
		return mode == ModeServe
	case ApplyBuild:
		return mode == ModeBuild
	default:
		return true
	}
}

// HookError wraps an error raised by a plugin hook with the plugin and hook
// names.
type HookError struct {
	PluginName string
	Hook       string
	Err        error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Hook, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *HookError) Unwrap() error {
	return e.Err
}
