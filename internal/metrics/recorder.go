// Package metrics defines the observability recorder used by the build
// pipeline and dev server. The Prometheus implementation is optional; the
// noop recorder keeps call sites unconditional.
package metrics

import "time"

// BuildOutcomeLabel enumerates final build statuses for counters.
type BuildOutcomeLabel string

const (
	OutcomeSuccess  BuildOutcomeLabel = "success"
	OutcomeFailed   BuildOutcomeLabel = "failed"
	OutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build and server metrics.
// All methods must be safe on the NoopRecorder so injection can be optional.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	ObserveTransformDuration(plugin string, d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	AddDocumentsBuilt(n int)
	IncCacheHit()
	IncCacheMiss()
	SetLiveReloadClients(n int)
	IncReloadsBroadcast()
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)             {}
func (NoopRecorder) ObserveTransformDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)              {}
func (NoopRecorder) AddDocumentsBuilt(int)                          {}
func (NoopRecorder) IncCacheHit()                                   {}
func (NoopRecorder) IncCacheMiss()                                  {}
func (NoopRecorder) SetLiveReloadClients(int)                       {}
func (NoopRecorder) IncReloadsBroadcast()                           {}
