package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flower_garden"

// GardenMetrics holds the garden's prometheus collectors
type GardenMetrics struct {
	Planted      prometheus.Counter
	Harvested    prometheus.Counter
	GrowthTicks  prometheus.Counter
	NotReady     prometheus.Counter
	LiveFlowers  prometheus.Gauge
	Spectators   prometheus.Gauge
	LedgerErrors prometheus.Counter
}

// NewGardenMetrics creates the collectors and registers them on reg.
// A nil registerer leaves them unregistered.
func NewGardenMetrics(reg prometheus.Registerer) *GardenMetrics {
	m := &GardenMetrics{
		Planted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flowers_planted_total",
			Help:      "Seeds planted.",
		}),
		Harvested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flowers_harvested_total",
			Help:      "Fully grown flowers collected.",
		}),
		GrowthTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "growth_ticks_total",
			Help:      "Stage advances across all flowers.",
		}),
		NotReady: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_not_ready_total",
			Help:      "Collect attempts on flowers that were not fully grown.",
		}),
		LiveFlowers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flowers_live",
			Help:      "Flowers currently in the garden.",
		}),
		Spectators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spectator",
			Name:      "connections",
			Help:      "Connected websocket spectators.",
		}),
		LedgerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "errors_total",
			Help:      "Harvest records that failed to persist.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Planted, m.Harvested, m.GrowthTicks, m.NotReady, m.LiveFlowers, m.Spectators, m.LedgerErrors)
	}
	return m
}
