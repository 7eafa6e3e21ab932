package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/errors"
)

// ListCalls returns recent call records, newest first.
func (h *Handler) ListCalls(c *gin.Context) {
	if h.recorder == nil {
		errors.ErrorResponse(c, http.StatusServiceUnavailable, "Call Log Unavailable", "call record store is not configured")
		return
	}

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			errors.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.recorder.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list call records", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"calls": records,
		"count": len(records),
	})
}
