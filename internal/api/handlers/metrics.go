package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
)

// GetMetrics returns the relay counters as JSON.
func (h *Handler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.GetMetrics())
}

// GetPrometheusMetrics returns the same counters in the Prometheus
// text exposition format.
func (h *Handler) GetPrometheusMetrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4", []byte(metrics.GetPrometheusMetrics()))
}
