// Package metrics exports polling statistics to prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "page_objects"

// Outcome labels
const (
	OutcomeSatisfied = "satisfied"
	OutcomeTimedOut  = "timed_out"
)

// PollMetrics implements wait.Observer on its own registry.
// Descriptions are not used as labels since they embed locators.
type PollMetrics struct {
	registry *prometheus.Registry
	polls    *prometheus.CounterVec
	attempts *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// NewPollMetrics - registers the polling collectors on a fresh registry
func NewPollMetrics() *PollMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PollMetrics{
		registry: reg,
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "total",
			Help:      "Completed polls by outcome",
		}, []string{"outcome"}),
		attempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "attempts",
			Help:      "Attempts needed per poll",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100, 250},
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Time spent polling",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30},
		}, []string{"outcome"}),
	}
}

// Satisfied records a poll whose condition held
func (m *PollMetrics) Satisfied(description string, attempts int, elapsed time.Duration) {
	m.observe(OutcomeSatisfied, attempts, elapsed)
}

// TimedOut records a poll that exhausted its timeout
func (m *PollMetrics) TimedOut(description string, attempts int, elapsed time.Duration) {
	m.observe(OutcomeTimedOut, attempts, elapsed)
}

func (m *PollMetrics) observe(outcome string, attempts int, elapsed time.Duration) {
	m.polls.WithLabelValues(outcome).Inc()
	m.attempts.WithLabelValues(outcome).Observe(float64(attempts))
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry
func (m *PollMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *PollMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *PollMetrics) Serve(ctx context.Context, addr string, logger *logrus.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
