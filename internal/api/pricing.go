package api

import (
	"net/http"
	"strings"

	"pawnshop-service/internal/models"

	"github.com/gin-gonic/gin"
)

// getPricing returns comparable sales with confidence and price range
func (h *Handler) getPricing(c *gin.Context) {
	query, category, ok := pricingParams(c)
	if !ok {
		return
	}

	report, err := h.pricing.Report(c.Request.Context(), query, category)
	if err != nil {
		h.respondError(c, "Pricing lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getPricingTrend(c *gin.Context) {
	query, category, ok := pricingParams(c)
	if !ok {
		return
	}

	trend, err := h.pricing.Trend(c.Request.Context(), query, category)
	if err != nil {
		h.respondError(c, "Pricing lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

func pricingParams(c *gin.Context) (string, models.Category, bool) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		badRequest(c, "q is required", nil)
		return "", "", false
	}
	category := models.Category(c.Query("category"))
	if category != "" && !category.Valid() {
		badRequest(c, "Unknown category", nil)
		return "", "", false
	}
	return query, category, true
}
