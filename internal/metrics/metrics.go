// Package metrics exports AMM activity as Prometheus collectors.
package metrics

import (
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ammledger/internal/amm"
)

const (
	namespace = "amm"

	statusCommitted = "committed"
	statusRejected  = "rejected"
)

// Metrics is an amm.Observer that records operation counts, swap volume and
// pool state.
type Metrics struct {
	registry *prometheus.Registry

	Operations  *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	SwapVolume  *prometheus.CounterVec
	PriceImpact prometheus.Histogram
	Reserves    *prometheus.GaugeVec
	TotalShares *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "AMM operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Rejected AMM operations by error code",
			},
			[]string{"op", "code"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "swap",
				Name:      "volume_total",
				Help:      "Swapped input amount per token",
			},
			[]string{"token"},
		),
		PriceImpact: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "swap",
				Name:      "price_impact",
				Help:      "Price impact of committed swaps",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
		),
		Reserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "reserve",
				Help:      "Pool reserve per token",
			},
			[]string{"pool", "token"},
		),
		TotalShares: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "total_shares",
				Help:      "Outstanding LP shares per pool",
			},
			[]string{"pool"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe implements amm.Observer.
func (m *Metrics) Observe(e amm.Event) {
	op := string(e.Kind)
	if !e.Committed() {
		m.Operations.WithLabelValues(op, statusRejected).Inc()
		_, code, _ := errorsmod.ABCIInfo(e.Err, false)
		m.Rejections.WithLabelValues(op, strconv.FormatUint(uint64(code), 10)).Inc()
		return
	}

	m.Operations.WithLabelValues(op, statusCommitted).Inc()
	if e.Kind == amm.EventSwap {
		m.SwapVolume.WithLabelValues(e.TokenIn).Add(e.AmountIn.InexactFloat64())
		m.PriceImpact.Observe(e.PriceImpact.InexactFloat64())
	}

	pool := e.Pool.String()
	m.Reserves.WithLabelValues(pool, e.Pool.TokenA).Set(e.ReserveA.InexactFloat64())
	m.Reserves.WithLabelValues(pool, e.Pool.TokenB).Set(e.ReserveB.InexactFloat64())
	m.TotalShares.WithLabelValues(pool).Set(e.TotalShares.InexactFloat64())
}

// Seed sets the pool gauges from a snapshot, for registries restored from
// stored state.
func (m *Metrics) Seed(snap amm.Snapshot) {
	for _, state := range snap.Pools {
		p := state.Pool
		pool := p.ID().String()
		m.Reserves.WithLabelValues(pool, p.TokenA).Set(p.ReserveA.InexactFloat64())
		m.Reserves.WithLabelValues(pool, p.TokenB).Set(p.ReserveB.InexactFloat64())
		m.TotalShares.WithLabelValues(pool).Set(p.TotalShares.InexactFloat64())
	}
}

// WriteTextfile writes the current values in the Prometheus text format,
// for collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
