package utils

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking engine.
// A nil *BookingMetrics is a no-op.
type BookingMetrics struct {
	transitions  *prometheus.CounterVec
	sweeps       *prometheus.CounterVec
	joinAttempts *prometheus.CounterVec
	joinLatency  prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "booking",
			Name:      "commands_total",
			Help:      "Booking commands by outcome",
		}, []string{"command", "outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "reconciler",
			Name:      "sweep_items_total",
			Help:      "Bookings touched by reconciliation sweeps",
		}, []string{"sweep", "outcome"}),
		joinAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "call",
			Name:      "join_attempts_total",
			Help:      "Video session join attempts by result",
		}, []string{"result"}),
		joinLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telecare",
			Subsystem: "call",
			Name:      "join_latency_seconds",
			Help:      "Time from first join attempt to a usable session",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.sweeps, m.joinAttempts, m.joinLatency)
	return m
}

func (m *BookingMetrics) ObserveCommand(command string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transitions.WithLabelValues(command, outcome).Inc()
}

func (m *BookingMetrics) ObserveSweep(sweep, outcome string) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(sweep, outcome).Inc()
}

func (m *BookingMetrics) ObserveJoinAttempt(result string) {
	if m == nil {
		return
	}
	m.joinAttempts.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveJoinLatency(seconds float64) {
	if m == nil {
		return
	}
	m.joinLatency.Observe(seconds)
}
