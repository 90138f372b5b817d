package utils

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveCommand("confirm", nil)
	m.ObserveCommand("confirm", errors.New("boom"))
	m.ObserveSweep("promote", "ok")
	m.ObserveJoinAttempt("not_found")
	m.ObserveJoinLatency(1.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("confirm", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("confirm", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues("promote", "ok")))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveCommand("confirm", nil)
	m.ObserveSweep("promote", "ok")
	m.ObserveJoinAttempt("ok")
	m.ObserveJoinLatency(0.1)
}
