package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestActionMetrics(t *testing.T) {
	ActionsLogged.WithLabelValues("check_in").Inc()
	PointsChanged.WithLabelValues("BASE_REWARD").Add(10)
	BadgesEarned.Inc()
	QuestsCompleted.Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"plugpoint_actions_total",
		"plugpoint_points_changed_total",
		"plugpoint_badges_earned_total",
		"plugpoint_quests_completed_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestPurchaseAndStoreMetrics(t *testing.T) {
	Purchases.WithLabelValues("ok").Inc()
	ProfileConflicts.Inc()
	OperationLatency.WithLabelValues("log_action").Observe(0.002)

	names := gatheredNames(t)
	for _, name := range []string{
		"plugpoint_purchases_total",
		"plugpoint_profile_conflicts_total",
		"plugpoint_operation_latency_seconds",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestCatalogAndHealthMetrics(t *testing.T) {
	CatalogRefreshes.WithLabelValues("ok").Inc()
	CatalogDefinitions.WithLabelValues("item").Set(6)
	HealthCheckStatus.WithLabelValues("store").Set(1)
	HealthRecoveries.WithLabelValues("catalog").Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"plugpoint_catalog_refresh_total",
		"plugpoint_catalog_definitions",
		"plugpoint_health_check_status",
		"plugpoint_health_recoveries_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}
