// Package metrics holds the prometheus collectors of the decision engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scopeguard"

// Decision outcomes.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

var (
	// Decisions counts scope and field decisions by kind and outcome.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Number of access decisions, by kind (scope, field) and outcome.",
	}, []string{"kind", "outcome"})

	// AssignmentMutations counts assignment store operations by operation and result.
	AssignmentMutations = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "assignment_mutations_total",
		Help:      "Number of role assignment mutations, by operation and error kind.",
	}, []string{"operation", "result"})

	// ExpiredAssignments counts assignments deactivated by the sweeper.
	ExpiredAssignments = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "expired_assignments_total",
		Help:      "Number of role assignments deactivated because their validity ended.",
	})

	// SweepDuration observes how long an expiry sweep takes.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of expiry sweeps.",
		Buckets:   prometheus.DefBuckets,
	})

	// CacheLookups counts effective permission set cache lookups by result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Namespace: namespace,
		Name:      "effective_set_cache_lookups_total",
		Help:      "Effective permission set cache lookups, by result.",
	}, []string{"result"})
)

// Outcome maps a boolean decision to its label.
func Outcome(allowed bool) string {
	if allowed {
		return OutcomeAllowed
	}

	return OutcomeDenied
}
