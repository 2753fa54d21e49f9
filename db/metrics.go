package db

import (
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "inventory_allocation"

var (
	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: "repository",
			Name:      "query_duration_seconds",
			Help:      "Time spent in a repository operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"repository", "operation", "outcome"},
	)

	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "repository",
			Name:      "queries_total",
			Help:      "Repository operations by outcome.",
		},
		[]string{"repository", "operation", "outcome"},
	)
)

const (
	outcomeOK    = "ok"
	outcomeMiss  = "miss"
	outcomeError = "error"
)

// Metric times one repository operation.
type Metric struct {
	repository string
	operation  string
	start      time.Time
}

func StartMetric(repository, operation string) *Metric {
	return &Metric{repository: repository, operation: operation, start: time.Now()}
}

// Complete records the operation. A query that found no row is a miss, not an error.
func (m *Metric) Complete(err error) {
	labels := prometheus.Labels{
		"repository": m.repository,
		"operation":  m.operation,
		"outcome":    outcome(err),
	}
	queries.With(labels).Inc()
	queryDuration.With(labels).Observe(time.Since(m.start).Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, pgx.ErrNoRows):
		return outcomeMiss
	default:
		return outcomeError
	}
}

func init() {
	prometheus.MustRegister(queryDuration, queries)
}
