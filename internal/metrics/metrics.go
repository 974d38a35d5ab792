package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry holds the GoldSentinel Prometheus metrics. A nil *Registry is
// valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	UpstreamCalls   *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
	CacheResults    *prometheus.CounterVec
	QuotaCalls      *prometheus.GaugeVec
	QuotaRemaining  prometheus.Gauge
	Scores          *prometheus.GaugeVec
	MarketOpen      prometheus.Gauge
}

// New creates a registry with every metric registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		UpstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldsentinel_upstream_calls_total",
				Help: "Upstream calls by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldsentinel_upstream_latency_seconds",
				Help:    "Upstream call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"source"},
		),
		CacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldsentinel_cache_results_total",
				Help: "Cache reads by series and resulting status",
			},
			[]string{"series", "status"},
		),
		QuotaCalls: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goldsentinel_quota_calls",
				Help: "Tracked upstream calls in the current period",
			},
			[]string{"period"},
		),
		QuotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldsentinel_quota_remaining",
				Help: "Calls left in the monthly budget",
			},
		),
		Scores: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goldsentinel_score",
				Help: "Latest fused scores by kind (technical, macro, verdict)",
			},
			[]string{"kind"},
		),
		MarketOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldsentinel_market_open",
				Help: "1 when the primary market is inside its trading window",
			},
		),
	}
	r.reg.MustRegister(
		r.UpstreamCalls,
		r.UpstreamLatency,
		r.CacheResults,
		r.QuotaCalls,
		r.QuotaRemaining,
		r.Scores,
		r.MarketOpen,
	)
	return r
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveUpstream records one upstream call.
func (r *Registry) ObserveUpstream(source string, started time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.UpstreamCalls.WithLabelValues(source, outcome).Inc()
	r.UpstreamLatency.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

// ObserveCache records the status of one cache read.
func (r *Registry) ObserveCache(series, status string) {
	if r == nil {
		return
	}
	r.CacheResults.WithLabelValues(series, status).Inc()
}

// SetQuota publishes the current quota counters.
func (r *Registry) SetQuota(today, month, remaining int) {
	if r == nil {
		return
	}
	r.QuotaCalls.WithLabelValues("day").Set(float64(today))
	r.QuotaCalls.WithLabelValues("month").Set(float64(month))
	r.QuotaRemaining.Set(float64(remaining))
}

// SetScore publishes a fused score.
func (r *Registry) SetScore(kind string, v float64) {
	if r == nil {
		return
	}
	r.Scores.WithLabelValues(kind).Set(v)
}

// SetMarketOpen publishes the trading-window state.
func (r *Registry) SetMarketOpen(open bool) {
	if r == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	r.MarketOpen.Set(v)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
