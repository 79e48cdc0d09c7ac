package api

import (
	"net/http"
	"time"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/service"

	"github.com/gin-gonic/gin"
)

// BulkAlertRequest arms alerts for the whole in-stock inventory
type BulkAlertRequest struct {
	PercentageChange float64 `json:"percentage_change"`
}

// StartMonitoringRequest optionally overrides the configured interval
type StartMonitoringRequest struct {
	IntervalSeconds int `json:"interval_seconds"`
}

func (h *Handler) listAlerts(c *gin.Context) {
	alerts := h.alerts.List()
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *Handler) getAlert(c *gin.Context) {
	alert, err := h.alerts.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "Alert not found", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) createAlert(c *gin.Context) {
	var req service.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	alert, err := h.alerts.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Failed to create alert", err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) createAlertsForInventory(c *gin.Context) {
	var req BulkAlertRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
	}

	created, err := h.alerts.CreateForAllInventory(c.Request.Context(), req.PercentageChange)
	if err != nil {
		h.respondError(c, "Failed to create alerts", err)
		return
	}
	if created == nil {
		created = []models.PriceAlert{}
	}
	c.JSON(http.StatusCreated, gin.H{
		"alerts":  created,
		"created": len(created),
	})
}

func (h *Handler) updateAlert(c *gin.Context) {
	var req service.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	alert, err := h.alerts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, "Failed to update alert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) deleteAlert(c *gin.Context) {
	if err := h.alerts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Failed to delete alert", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) toggleAlert(c *gin.Context) {
	alert, err := h.alerts.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to toggle alert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) resetAlert(c *gin.Context) {
	alert, err := h.alerts.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to reset alert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) clearTriggered(c *gin.Context) {
	removed, err := h.alerts.ClearTriggered(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to clear triggered alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) alertStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.alerts.Statistics())
}

func (h *Handler) alertSuggestions(c *gin.Context) {
	items := h.alerts.Suggestions()
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *Handler) recommendedThreshold(c *gin.Context) {
	category := models.Category(c.Query("category"))
	c.JSON(http.StatusOK, gin.H{
		"category":  category,
		"threshold": h.alerts.RecommendedThreshold(category),
	})
}

// checkAlerts runs one monitoring pass now
func (h *Handler) checkAlerts(c *gin.Context) {
	summary, err := h.alerts.CheckAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "Alert check failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) monitoringStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

func (h *Handler) startMonitoring(c *gin.Context) {
	var req StartMonitoringRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
	}
	if req.IntervalSeconds < 0 {
		badRequest(c, "interval_seconds must not be negative", nil)
		return
	}

	interval := h.monitorInterval
	if req.IntervalSeconds > 0 {
		interval = time.Duration(req.IntervalSeconds) * time.Second
	}

	started := h.monitor.Start(h.baseCtx, interval)
	c.JSON(http.StatusOK, gin.H{
		"started": started,
		"status":  h.monitor.Status(),
	})
}

func (h *Handler) stopMonitoring(c *gin.Context) {
	h.monitor.Stop()
	c.JSON(http.StatusOK, h.monitor.Status())
}
