package plugin

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/blogforge/internal/config"
	"git.home.luguber.info/inful/blogforge/internal/metrics"
)

// Hook names used in HookError and logging.
const (
	hookConfigResolved  = "configResolved"
	hookConfigureServer = "configureServer"
	hookBuildStart      = "buildStart"
	hookTransform       = "transform"
	hookBuildEnd        = "buildEnd"
)

// Dispatcher invokes plugin hooks across a frozen execution order. The order
// is derived once per configuration load and reused for the lifetime of the
// build or serve session.
type Dispatcher struct {
	order    []*Descriptor
	recorder metrics.Recorder
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder attaches a metrics recorder for per-plugin transform timings.
func WithRecorder(r metrics.Recorder) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.recorder = r
	}
}

// NewDispatcher creates a dispatcher over the given execution order.
func NewDispatcher(order []*Descriptor, opts ...DispatcherOption) *Dispatcher {
	dp := &Dispatcher{order: order, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(dp)
	}
	return dp
}

// Order returns the execution order the dispatcher was built with.
func (dp *Dispatcher) Order() []*Descriptor {
	return dp.order
}

// ConfigResolved notifies every plugin that configuration has been loaded.
// The first hook error aborts the dispatch.
func (dp *Dispatcher) ConfigResolved(ctx context.Context, cfg *config.Config) error {
	for _, d := range dp.order {
		if d.ConfigResolved == nil {
			continue
		}
		if err := d.ConfigResolved(ctx, cfg); err != nil {
			return &HookError{PluginName: d.Name, Hook: hookConfigResolved, Err: err}
		}
	}
	return nil
}

// ConfigureServer lets every plugin extend the dev server before it starts.
func (dp *Dispatcher) ConfigureServer(ctx context.Context, srv *ServerContext) error {
	for _, d := range dp.order {
		if d.ConfigureServer == nil {
			continue
		}
		if err := d.ConfigureServer(ctx, srv); err != nil {
			return &HookError{PluginName: d.Name, Hook: hookConfigureServer, Err: err}
		}
	}
	return nil
}

// BuildStart notifies every plugin that a build is beginning.
func (dp *Dispatcher) BuildStart(ctx context.Context, bc *BuildContext) error {
	for _, d := range dp.order {
		if d.BuildStart == nil {
			continue
		}
		if err := d.BuildStart(ctx, bc); err != nil {
			return &HookError{PluginName: d.Name, Hook: hookBuildStart, Err: err}
		}
	}
	return nil
}

// Transform runs the transform stage for one document. Plugins are invoked
// sequentially in execution order; the first plugin returning a non-nil
// TransformResult short-circuits the stage and its result is the stage
// output. A nil result from a plugin means "no change, try the next one". If
// every plugin returns nil the document passes through unmodified, reported
// as a nil TransformResult.
func (dp *Dispatcher) Transform(ctx context.Context, in *TransformInput) (*TransformResult, error) {
	for _, d := range dp.order {
		if d.Transform == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		res, err := d.Transform(ctx, in)
		if err != nil {
			return nil, &HookError{PluginName: d.Name, Hook: hookTransform, Err: err}
		}
		if res != nil {
			dp.recorder.ObserveTransformDuration(d.Name, time.Since(start))
			slog.Debug("transform resolved", "plugin", d.Name, "path", in.Path)
			return res, nil
		}
	}
	return nil, nil
}

// BuildEnd notifies every plugin that the build finished. All hooks run even
// when one fails, so cleanup code always gets its callback; the first hook
// error is returned.
func (dp *Dispatcher) BuildEnd(ctx context.Context, bc *BuildContext, buildErr error) error {
	var firstErr error
	for _, d := range dp.order {
		if d.BuildEnd == nil {
			continue
		}
		if err := d.BuildEnd(ctx, bc, buildErr); err != nil && firstErr == nil {
			firstErr = &HookError{PluginName: d.Name, Hook: hookBuildEnd, Err: err}
		}
	}
	return firstErr
}
