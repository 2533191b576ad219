// Package metrics exposes the pacing monitor's state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pacing-forecaster/internal/forecast"
)

const namespace = "pacing"

// Tick outcomes recorded by ObserveTick.
const (
	OutcomeForecast   = "forecast"
	OutcomeNoForecast = "no_forecast"
	OutcomeSkipped    = "skipped"
	OutcomeError      = "error"
)

// Recorder holds the monitor collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	eod       prometheus.Gauge
	low       prometheus.Gauge
	high      prometheus.Gauge
	soFar     prometheus.Gauge
	deltaPct  prometheus.Gauge
	verdict   *prometheus.GaugeVec
	warnings  *prometheus.GaugeVec
	ticks     *prometheus.CounterVec
	alerts    *prometheus.CounterVec
	cacheHits prometheus.CounterFunc
}

// CacheCounters reports statistics cache activity.
type CacheCounters interface {
	Counters() (hits, builds int)
}

// NewRecorder registers the monitor collectors. cache may be nil.
func NewRecorder(cache CacheCounters) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		eod: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "eod_revenue",
			Help: "Projected end-of-day revenue at the latest checkpoint.",
		}),
		low: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "eod_revenue_low",
			Help: "Lower bound of the end-of-day projection.",
		}),
		high: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "eod_revenue_high",
			Help: "Upper bound of the end-of-day projection.",
		}),
		soFar: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "revenue_so_far",
			Help: "Revenue accumulated through the effective hour.",
		}),
		deltaPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "delta_ratio",
			Help: "Relative difference between revenue so far and the weekday expectation.",
		}),
		verdict: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "verdict",
			Help: "1 for the current pacing verdict, 0 otherwise.",
		}, []string{"verdict"}),
		warnings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "warnings",
			Help: "Active advisory warnings by kind.",
		}, []string{"kind"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Monitor ticks by outcome.",
		}, []string{"outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "alerts_total",
			Help: "Pacing alerts emitted by verdict.",
		}, []string{"verdict"}),
	}

	reg.MustRegister(r.eod, r.low, r.high, r.soFar, r.deltaPct, r.verdict, r.warnings, r.ticks, r.alerts)
	reg.MustRegister(collectors.NewGoCollector())

	if cache != nil {
		r.cacheHits = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "statistics_cache_hits_total",
			Help: "Statistics cache hits.",
		}, func() float64 {
			hits, _ := cache.Counters()
			return float64(hits)
		})
		reg.MustRegister(r.cacheHits, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "statistics_builds_total",
			Help: "Statistics rebuilds.",
		}, func() float64 {
			_, builds := cache.Counters()
			return float64(builds)
		}))
	}
	return r
}

// ObserveForecast publishes the latest projection.
func (r *Recorder) ObserveForecast(res *forecast.Result) {
	if r == nil || res == nil {
		return
	}
	r.eod.Set(res.EOD)
	r.low.Set(res.Low)
	r.high.Set(res.High)
	r.soFar.Set(res.RevenueSoFar)
	r.deltaPct.Set(res.DeltaPct)

	for _, p := range []forecast.Pacing{forecast.PacingAhead, forecast.PacingOnPace, forecast.PacingBehind} {
		v := 0.0
		if p == res.Pacing {
			v = 1
		}
		r.verdict.WithLabelValues(string(p)).Set(v)
	}

	counts := map[forecast.WarningKind]int{forecast.WarningTraffic: 0, forecast.WarningEfficiency: 0}
	for _, w := range res.Warnings {
		counts[w.Kind]++
	}
	for kind, n := range counts {
		r.warnings.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// ObserveTick counts a tick outcome.
func (r *Recorder) ObserveTick(outcome string) {
	if r == nil {
		return
	}
	r.ticks.WithLabelValues(outcome).Inc()
}

// ObserveAlert counts an emitted alert.
func (r *Recorder) ObserveAlert(verdict forecast.Pacing) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(string(verdict)).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
