// Package metrics exposes engine counters on a private Prometheus registry.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	GuardDenials  *prometheus.CounterVec
	Orders        *prometheus.CounterVec
	KillSwitch    prometheus.Counter
	KillFailures  prometheus.Counter
	Drawdown      prometheus.Gauge
	OpenPositions prometheus.Gauge
	CycleSeconds  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		GuardDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propbot_guard_denials_total",
			Help: "Entries denied by a risk guard, by violation code.",
		}, []string{"code"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propbot_orders_total",
			Help: "Order submissions by outcome.",
		}, []string{"action", "result"}),
		KillSwitch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propbot_kill_switch_total",
			Help: "Kill-switch activations.",
		}),
		KillFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propbot_kill_failures_total",
			Help: "Positions or orders the kill switch failed to close.",
		}),
		Drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "propbot_daily_drawdown_ratio",
			Help: "Current drawdown from the start-of-day balance.",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "propbot_open_positions",
			Help: "Engine-owned open positions.",
		}),
		CycleSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propbot_cycle_seconds",
			Help:    "Loop cycle duration.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"loop"}),
	}
	m.Registry.MustRegister(
		m.GuardDenials,
		m.Orders,
		m.KillSwitch,
		m.KillFailures,
		m.Drawdown,
		m.OpenPositions,
		m.CycleSeconds,
	)
	return m
}

func (m *Metrics) Denied(codes ...string) {
	if m == nil {
		return
	}
	for _, c := range codes {
		m.GuardDenials.WithLabelValues(c).Inc()
	}
}

// Order records one order outcome: result is "filled", "rejected" or
// "error".
func (m *Metrics) Order(action, result string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(action, result).Inc()
}

func (m *Metrics) KillSwitchFired() {
	if m == nil {
		return
	}
	m.KillSwitch.Inc()
}

func (m *Metrics) KillFailed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.KillFailures.Add(float64(n))
}

func (m *Metrics) SetDrawdown(v float64) {
	if m == nil {
		return
	}
	m.Drawdown.Set(v)
}

func (m *Metrics) SetOpenPositions(n int) {
	if m == nil {
		return
	}
	m.OpenPositions.Set(float64(n))
}

// ObserveCycle records the time since start for loop.
func (m *Metrics) ObserveCycle(loop string, start time.Time) {
	if m == nil {
		return
	}
	m.CycleSeconds.WithLabelValues(loop).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
