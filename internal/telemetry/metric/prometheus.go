package metric

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/savekeep-go/internal/core/domain"
)

const namespace = "savekeep"

// Registry holds all application metrics. Observe methods are safe on a
// nil *Registry so callers may run without metrics.
type Registry struct {
	registry *prometheus.Registry

	SavesTotal        *prometheus.CounterVec
	LoadsTotal        *prometheus.CounterVec
	BackupsTotal      *prometheus.CounterVec
	IntegrityFailures prometheus.Counter
	SaveDuration      prometheus.Histogram
	SlotsActive       prometheus.Gauge
	PlayTimeSeconds   prometheus.Gauge
}

// NewRegistry creates a registry with the application metrics plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,
		SavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Save attempts by result code.",
		}, []string{"code"}),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Save point loads by operation and result code.",
		}, []string{"op", "code"}),
		BackupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backup operations by operation and result code.",
		}, []string{"op", "code"}),
		IntegrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_failures_total",
			Help:      "Hash or HMAC verification failures.",
		}),
		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Time to write one save point.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		SlotsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots",
			Help:      "Slots known to the registry.",
		}),
		PlayTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "play_time_seconds",
			Help:      "Accumulated play time of the active slot.",
		}),
	}
	reg.MustRegister(
		r.SavesTotal,
		r.LoadsTotal,
		r.BackupsTotal,
		r.IntegrityFailures,
		r.SaveDuration,
		r.SlotsActive,
		r.PlayTimeSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler serves the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Register adds an extra collector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for tests and tooling.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// resultCode labels an outcome: "ok" or the error's code.
func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	if code := domain.GetErrorCode(err); code != "" {
		return code
	}
	return "unknown"
}

func (r *Registry) countIntegrity(err error) {
	if errors.Is(err, domain.ErrIntegrity) {
		r.IntegrityFailures.Inc()
	}
}

// ObserveSave records one save attempt.
func (r *Registry) ObserveSave(d time.Duration, err error) {
	if r == nil {
		return
	}
	r.SavesTotal.WithLabelValues(resultCode(err)).Inc()
	if err == nil {
		r.SaveDuration.Observe(d.Seconds())
	}
}

// ObserveLoad records a slot scan ("scan") or save point decode ("use").
func (r *Registry) ObserveLoad(op string, err error) {
	if r == nil {
		return
	}
	r.LoadsTotal.WithLabelValues(op, resultCode(err)).Inc()
	r.countIntegrity(err)
}

// ObserveBackup records a backup "create" or "restore".
func (r *Registry) ObserveBackup(op string, err error) {
	if r == nil {
		return
	}
	r.BackupsTotal.WithLabelValues(op, resultCode(err)).Inc()
	r.countIntegrity(err)
}

// ObserveVerify records the result of checking one save point.
func (r *Registry) ObserveVerify(err error) {
	if r == nil {
		return
	}
	r.LoadsTotal.WithLabelValues("verify", resultCode(err)).Inc()
	r.countIntegrity(err)
}

// SetSlots records the number of known slots.
func (r *Registry) SetSlots(n int) {
	if r == nil {
		return
	}
	r.SlotsActive.Set(float64(n))
}

// SetPlayTime records the active slot's play time.
func (r *Registry) SetPlayTime(seconds float32) {
	if r == nil {
		return
	}
	r.PlayTimeSeconds.Set(float64(seconds))
}
