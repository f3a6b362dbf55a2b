// Package metrics provides Prometheus metrics for PlugPoint.
// Counters, gauges and histograms for actions, points, purchases, the
// catalog cache, and health checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Actions ────────────────────────────────────────────────────────────────

// ActionsLogged tracks logged actions by type.
var ActionsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "actions_total",
	Help:      "Total user actions logged.",
}, []string{"action_type"})

// PointsChanged tracks points moved by reason. Purchases are counted as spent.
var PointsChanged = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "points_changed_total",
	Help:      "Absolute points moved, by transaction reason.",
}, []string{"reason"})

// BadgesEarned tracks badge unlocks.
var BadgesEarned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "badges_earned_total",
	Help:      "Total badges earned.",
})

// QuestsCompleted tracks quest completions.
var QuestsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "quests_completed_total",
	Help:      "Total quests completed.",
})

// ─── Purchases ──────────────────────────────────────────────────────────────

// Purchases tracks purchase attempts by result (ok, not_found, not_purchasable,
// already_owned, insufficient_funds, error).
var Purchases = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "purchases_total",
	Help:      "Virtual item purchase attempts by result.",
}, []string{"result"})

// ─── Store ──────────────────────────────────────────────────────────────────

// ProfileConflicts tracks optimistic-version conflicts on save.
var ProfileConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "profile_conflicts_total",
	Help:      "Profile saves rejected by the version check.",
})

// OperationLatency tracks orchestrator call duration.
var OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "plugpoint",
	Name:      "operation_latency_seconds",
	Help:      "Gamification operation duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"op"})

// ─── Catalog ────────────────────────────────────────────────────────────────

// CatalogRefreshes tracks cache reloads by result.
var CatalogRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "catalog_refresh_total",
	Help:      "Catalog cache reloads by result.",
}, []string{"result"})

// CatalogDefinitions tracks how many definitions the cache holds.
var CatalogDefinitions = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "plugpoint",
	Name:      "catalog_definitions",
	Help:      "Catalog definitions currently cached, by kind.",
}, []string{"kind"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "plugpoint",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "plugpoint",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
