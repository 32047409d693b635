package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the reservation engine.
type BookingMetrics struct {
	operationsTotal *prometheus.CounterVec
	lockWait        *prometheus.HistogramVec
	lockContention  prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "operations_total",
			Help:      "Booking lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Name:      "lock_wait_seconds",
			Help:      "Time spent acquiring the provider reservation lock",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),
		lockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "lock_contention_total",
			Help:      "Lock acquisitions whose first attempt found the key held",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.lockWait, m.lockContention)
	return m
}

// ObserveOperation counts one lifecycle call. outcome is "ok" or an error class.
func (m *BookingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *BookingMetrics) ObserveLockWait(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(outcome).Observe(seconds)
}

func (m *BookingMetrics) IncLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}
