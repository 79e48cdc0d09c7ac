package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/provider"
	"pawnshop-service/internal/service"
	"pawnshop-service/internal/util"
	"pawnshop-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// EnrichmentRequester queues enrichment batches for the background worker
type EnrichmentRequester interface {
	PublishEnrichmentRequested(ctx context.Context, event *models.EnrichmentRequestedEvent) error
}

// Monitor controls the price monitoring loop
type Monitor interface {
	Start(ctx context.Context, interval time.Duration) bool
	Stop()
	Status() worker.MonitorStatus
}

// Services are the dependencies of the HTTP handlers. Requests may be nil
// when Kafka is disabled.
type Services struct {
	Inventory       *service.InventoryService
	Enrichment      *service.EnrichmentService
	Pricing         *service.PricingService
	Alerts          *service.AlertService
	Monitor         Monitor
	Requests        EnrichmentRequester
	MonitorInterval time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	inventory       *service.InventoryService
	enrichment      *service.EnrichmentService
	pricing         *service.PricingService
	alerts          *service.AlertService
	monitor         Monitor
	requests        EnrichmentRequester
	monitorInterval time.Duration

	// outlives requests; background work started over HTTP runs under it
	baseCtx context.Context
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. baseCtx bounds work that continues
// after the request returns, such as the monitoring loop.
func NewHandler(baseCtx context.Context, s Services) *Handler {
	return &Handler{
		inventory:       s.Inventory,
		enrichment:      s.Enrichment,
		pricing:         s.Pricing,
		alerts:          s.Alerts,
		monitor:         s.Monitor,
		requests:        s.Requests,
		monitorInterval: s.MonitorInterval,
		baseCtx:         baseCtx,
		logger:          util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		inventory := v1.Group("/inventory")
		inventory.GET("", h.listItems)
		inventory.POST("", h.createItem)
		inventory.DELETE("", h.deleteAllItems)
		inventory.POST("/import", h.importItems)
		inventory.GET("/stats", h.inventoryStats)
		inventory.GET("/export.csv", h.exportCSV)
		inventory.GET("/export.xlsx", h.exportXLSX)
		inventory.DELETE("/sold", h.clearSold)
		inventory.GET("/:id", h.getItem)
		inventory.PUT("/:id", h.updateItem)
		inventory.DELETE("/:id", h.deleteItem)

		enrichment := v1.Group("/enrichment")
		enrichment.POST("", h.enrich)
		enrichment.POST("/async", h.enrichAsync)
		enrichment.GET("/stream", h.enrichStream)
		enrichment.GET("/progress", h.enrichmentProgress)

		v1.GET("/pricing", h.getPricing)
		v1.GET("/pricing/trend", h.getPricingTrend)

		alerts := v1.Group("/alerts")
		alerts.GET("", h.listAlerts)
		alerts.POST("", h.createAlert)
		alerts.POST("/bulk", h.createAlertsForInventory)
		alerts.POST("/check", h.checkAlerts)
		alerts.GET("/stats", h.alertStats)
		alerts.GET("/suggestions", h.alertSuggestions)
		alerts.GET("/recommended-threshold", h.recommendedThreshold)
		alerts.DELETE("/triggered", h.clearTriggered)
		alerts.GET("/:id", h.getAlert)
		alerts.PUT("/:id", h.updateAlert)
		alerts.DELETE("/:id", h.deleteAlert)
		alerts.POST("/:id/toggle", h.toggleAlert)
		alerts.POST("/:id/reset", h.resetAlert)

		v1.GET("/monitoring", h.monitoringStatus)
		v1.POST("/monitoring/start", h.startMonitoring)
		v1.POST("/monitoring/stop", h.stopMonitoring)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	var validationErrs validator.ValidationErrors
	var providerErr *provider.Error

	switch {
	case errors.Is(err, service.ErrItemNotFound), errors.Is(err, service.ErrAlertNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoPrice):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &validationErrs):
		status = http.StatusBadRequest
	case errors.Is(err, provider.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
