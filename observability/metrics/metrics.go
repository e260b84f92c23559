package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an http.Handler serving the default Prometheus registry,
// for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// FarmMetrics exposes Prometheus instrumentation for farm lifecycle and
// accrual operations.
type FarmMetrics struct {
	farmerActions      *prometheus.CounterVec
	claimAmount        *prometheus.GaugeVec
	accrualPreviewDust *prometheus.GaugeVec
	snapshotTaken      *prometheus.CounterVec
	stakedTotal        *prometheus.GaugeVec
	compoundActions    *prometheus.CounterVec
	engineErrors       *prometheus.CounterVec
}

var (
	farmOnce     sync.Once
	farmRegistry *FarmMetrics
)

// Farm returns the process-wide FarmMetrics singleton, registering its
// collectors with the default Prometheus registry on first use.
func Farm() *FarmMetrics {
	farmOnce.Do(func() {
		farmRegistry = &FarmMetrics{
			farmerActions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farmengine_farmer_actions_total",
				Help: "Count of farmer lifecycle actions by kind and farm.",
			}, []string{"action", "farm_id"}),
			claimAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "farmengine_claim_amount",
				Help: "Amount paid out by the most recent claim_eligible_harvest call per farm and mint.",
			}, []string{"farm_id", "mint"}),
			accrualPreviewDust: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "farmengine_accrual_preview_dust",
				Help: "Rounding remainder observed in the most recent accrual preview per farm.",
			}, []string{"farm_id"}),
			snapshotTaken: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farmengine_snapshot_taken_total",
				Help: "Count of take_snapshot calls accepted per farm.",
			}, []string{"farm_id"}),
			stakedTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "farmengine_staked_total",
				Help: "Total staked balance recorded in the latest snapshot per farm.",
			}, []string{"farm_id"}),
			compoundActions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farmengine_compound_actions_total",
				Help: "Count of compounding operations by kind (same_farm, across_farms).",
			}, []string{"kind"}),
			engineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farmengine_engine_errors_total",
				Help: "Count of engine operation failures by operation and error reason.",
			}, []string{"operation", "reason"}),
		}
		prometheus.MustRegister(
			farmRegistry.farmerActions,
			farmRegistry.claimAmount,
			farmRegistry.accrualPreviewDust,
			farmRegistry.snapshotTaken,
			farmRegistry.stakedTotal,
			farmRegistry.compoundActions,
			farmRegistry.engineErrors,
		)
	})
	return farmRegistry
}

func (m *FarmMetrics) ObserveFarmerAction(action, farmID string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.farmerActions.WithLabelValues(action, normalise(farmID)).Inc()
}

func (m *FarmMetrics) SetClaimAmount(farmID, mint string, amount float64) {
	if m == nil {
		return
	}
	m.claimAmount.WithLabelValues(normalise(farmID), normalise(mint)).Set(amount)
}

func (m *FarmMetrics) SetAccrualPreviewDust(farmID string, dust float64) {
	if m == nil {
		return
	}
	m.accrualPreviewDust.WithLabelValues(normalise(farmID)).Set(dust)
}

func (m *FarmMetrics) IncSnapshotTaken(farmID string) {
	if m == nil {
		return
	}
	m.snapshotTaken.WithLabelValues(normalise(farmID)).Inc()
}

func (m *FarmMetrics) SetStakedTotal(farmID string, staked float64) {
	if m == nil {
		return
	}
	m.stakedTotal.WithLabelValues(normalise(farmID)).Set(staked)
}

func (m *FarmMetrics) IncCompoundAction(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.compoundActions.WithLabelValues(kind).Inc()
}

func (m *FarmMetrics) IncEngineError(operation string, err error) {
	if m == nil {
		return
	}
	reason := "unknown"
	if err != nil {
		reason = err.Error()
	}
	m.engineErrors.WithLabelValues(normalise(operation), reason).Inc()
}

func (m *FarmMetrics) InitFarm(farmID string) {
	if m == nil {
		return
	}
	id := normalise(farmID)
	m.snapshotTaken.WithLabelValues(id).Add(0)
	m.stakedTotal.WithLabelValues(id).Set(0)
	m.accrualPreviewDust.WithLabelValues(id).Set(0)
}

// FarmerActionsVec returns the underlying CounterVec for tests asserting on
// label cardinality.
func (m *FarmMetrics) FarmerActionsVec() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.farmerActions
}

func normalise(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
