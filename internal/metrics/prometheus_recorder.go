package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	buildDuration     prom.Histogram
	transformDuration *prom.HistogramVec
	buildOutcome      *prom.CounterVec
	documentsBuilt    prom.Counter
	cacheHits         prom.Counter
	cacheMisses       prom.Counter
	livereloadClients prom.Gauge
	reloadsBroadcast  prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogforge",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.transformDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "blogforge",
			Name:      "transform_duration_seconds",
			Help:      "Duration of transform stage per resolving plugin",
			Buckets:   prom.DefBuckets,
		}, []string{"plugin"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogforge",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.documentsBuilt = prom.NewCounter(prom.CounterOpts{
			Namespace: "blogforge",
			Name:      "documents_built_total",
			Help:      "Documents written to the output directory",
		})
		pr.cacheHits = prom.NewCounter(prom.CounterOpts{
			Namespace: "blogforge",
			Name:      "transform_cache_hits_total",
			Help:      "Transform cache hits",
		})
		pr.cacheMisses = prom.NewCounter(prom.CounterOpts{
			Namespace: "blogforge",
			Name:      "transform_cache_misses_total",
			Help:      "Transform cache misses",
		})
		pr.livereloadClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: "blogforge",
			Name:      "livereload_clients",
			Help:      "Connected live-reload SSE clients",
		})
		pr.reloadsBroadcast = prom.NewCounter(prom.CounterOpts{
			Namespace: "blogforge",
			Name:      "livereload_broadcasts_total",
			Help:      "Reload events broadcast to clients",
		})
		reg.MustRegister(pr.buildDuration, pr.transformDuration, pr.buildOutcome,
			pr.documentsBuilt, pr.cacheHits, pr.cacheMisses, pr.livereloadClients, pr.reloadsBroadcast)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveTransformDuration(plugin string, d time.Duration) {
	if p == nil || p.transformDuration == nil {
		return
	}
	p.transformDuration.WithLabelValues(plugin).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddDocumentsBuilt(n int) {
	if p == nil || p.documentsBuilt == nil {
		return
	}
	p.documentsBuilt.Add(float64(n))
}

func (p *PrometheusRecorder) IncCacheHit() {
	if p == nil || p.cacheHits == nil {
		return
	}
	p.cacheHits.Inc()
}

func (p *PrometheusRecorder) IncCacheMiss() {
	if p == nil || p.cacheMisses == nil {
		return
	}
	p.cacheMisses.Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil || p.livereloadClients == nil {
		return
	}
	p.livereloadClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncReloadsBroadcast() {
	if p == nil || p.reloadsBroadcast == nil {
		return
	}
	p.reloadsBroadcast.Inc()
}
