package handlers

import (
	"net/http"

	"telecare/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HandlerBundle groups the endpoint handlers registered by routes.
type HandlerBundle struct {
	Booking      *BookingHandler
	Professional *ProfessionalHandler
	Device       *DeviceHandler
	Wallet       *WalletHandler
	Gatherer     prometheus.Gatherer
}

// HealthHandler reports the latest dependency health snapshot.
func (hb *HandlerBundle) HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	healthy := status.Store == "memory" || status.Mongo
	for _, up := range status.Redis {
		healthy = healthy && up
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": map[bool]string{true: "ok", false: "degraded"}[healthy], "checks": status})
}

// MetricsHandler serves Prometheus metrics.
func (hb *HandlerBundle) MetricsHandler() gin.HandlerFunc {
	gatherer := hb.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
