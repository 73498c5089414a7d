package withdrawguard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	HookTotal       *prometheus.CounterVec
	WithdrawnAmount prometheus.Counter
	FeeAmount       prometheus.Counter
	GlobalWithdrawn prometheus.Gauge
	BackendUp       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HookTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "withdrawguard_hook_total",
				Help: "Total withdrawal hook calls by result",
			},
			[]string{"result"},
		),
		WithdrawnAmount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "withdrawguard_withdrawn_amount_total",
				Help: "Sum of accepted pre-fee withdrawal amounts",
			},
		),
		FeeAmount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "withdrawguard_fee_amount_total",
				Help: "Sum of fees routed to the treasury",
			},
		),
		GlobalWithdrawn: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "withdrawguard_global_withdrawn_this_period",
				Help: "Global amount withdrawn in the current period after the last accepted withdrawal",
			},
		),
		BackendUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "withdrawguard_backend_up",
				Help: "Whether the last storage health probe succeeded",
			},
		),
	}

	reg.MustRegister(m.HookTotal, m.WithdrawnAmount, m.FeeAmount, m.GlobalWithdrawn, m.BackendUp)
	return m
}

// SetBackendUp records the result of a storage health probe.
func (m *Metrics) SetBackendUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.BackendUp.Set(1)
	} else {
		m.BackendUp.Set(0)
	}
}

func (m *Metrics) observeRejected(reason string) {
	if m == nil {
		return
	}
	m.HookTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeAccepted(amount, fee, globalSpent decimal.Decimal) {
	if m == nil {
		return
	}
	m.HookTotal.WithLabelValues(reasonAccepted).Inc()
	m.WithdrawnAmount.Add(amount.InexactFloat64())
	if fee.IsPositive() {
		m.FeeAmount.Add(fee.InexactFloat64())
	}
	m.GlobalWithdrawn.Set(globalSpent.InexactFloat64())
}
