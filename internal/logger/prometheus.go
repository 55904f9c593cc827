package logger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	statements     *prometheus.CounterVec //nolint:gochecknoglobals
	statementsOnce sync.Once              //nolint:gochecknoglobals
)

// PrometheusHook counts log statements per level.
type PrometheusHook struct {
	counter *prometheus.CounterVec
}

// Run implements zerolog.Hook.
func (h PrometheusHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel && h.counter != nil {
		h.counter.WithLabelValues(level.String()).Inc()
	}
}

// NewPrometheusHook returns the hook. The counter is registered once per
// process with the service of the first call as constant label.
func NewPrometheusHook(service string) PrometheusHook {
	statementsOnce.Do(func() {
		statements = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "scopeguard",
				Name:        "log_statements_total",
				Help:        "Number of log statements, differentiated by log level.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"level"},
		)
	})

	return PrometheusHook{counter: statements}
}
