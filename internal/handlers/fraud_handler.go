package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

type FraudHandler struct {
	fraudService services.FraudService
}

func NewFraudHandler(fraudService services.FraudService) *FraudHandler {
	return &FraudHandler{fraudService: fraudService}
}

// @Summary Fraud Check
// @Description Scan a collector's recent transactions for suspicious patterns (Admin)
// @Tags Fraud
// @Produce json
// @Param collector_id query int false "Collector user ID (defaults to the caller)"
// @Param window_hours query int false "Detection window in hours (defaults to the configured window)"
// @Success 200 {object} services.FraudReport
// @Security BearerAuth
// @Router /fraud/check [get]
func (h *FraudHandler) Check(c *gin.Context) {
	actor := actorFrom(c)
	collectorID := actor.ID
	if raw := c.Query("collector_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "collector_id must be numeric"})
			return
		}
		collectorID = uint(id)
	}

	windowHours := 0
	if raw := c.Query("window_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window_hours must be a positive integer"})
			return
		}
		windowHours = hours
	}

	report, err := h.fraudService.DetectSuspiciousPatterns(c.Request.Context(), actor.SchoolID, collectorID, windowHours)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
