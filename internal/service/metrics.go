package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/mealbox/internal/session"
)

// Metrics are the storefront's business counters. A nil *Metrics records nothing.
type Metrics struct {
	boxesAdded     prometheus.Counter
	cartValue      prometheus.Histogram
	checkouts      *prometheus.CounterVec
	forcedSignOuts prometheus.Counter
}

// NewMetrics creates the collectors, including a gauge of live sessions,
// and registers them with reg.
func NewMetrics(reg prometheus.Registerer, sessions *session.Manager) *Metrics {
	m := &Metrics{
		boxesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mealbox",
			Name:      "boxes_added_total",
			Help:      "Boxes committed to a cart.",
		}),
		cartValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mealbox",
			Name:      "checkout_value_pounds",
			Help:      "Cart total at checkout.",
			Buckets:   []float64{25, 50, 75, 100, 150, 200, 300},
		}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealbox",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by stage and result.",
		}, []string{"stage", "result"}),
		forcedSignOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mealbox",
			Name:      "forced_sign_outs_total",
			Help:      "Sessions ended because the backend rejected the customer's token.",
		}),
	}
	liveSessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "mealbox",
		Name:      "sessions_live",
		Help:      "Customer sessions held in memory.",
	}, func() float64 { return float64(sessions.Len()) })

	reg.MustRegister(m.boxesAdded, m.cartValue, m.checkouts, m.forcedSignOuts, liveSessions)
	return m
}

func (m *Metrics) boxAdded() {
	if m != nil {
		m.boxesAdded.Inc()
	}
}

func (m *Metrics) checkout(stage, result string, pence int64) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(stage, result).Inc()
	if stage == "start" && result == "ok" {
		m.cartValue.Observe(float64(pence) / 100)
	}
}

func (m *Metrics) forcedSignOut() {
	if m != nil {
		m.forcedSignOuts.Inc()
	}
}
