package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EnrichRequest selects the items of a batch; no ids means every in-stock item
type EnrichRequest struct {
	BatchID string   `json:"batch_id"`
	ItemIDs []string `json:"item_ids"`
}

// streamMessage closes a progress stream with the batch outcome
type streamMessage struct {
	Kind   string               `json:"kind"`
	Result *service.BatchResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func bindEnrichRequest(c *gin.Context) (EnrichRequest, bool) {
	var req EnrichRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return req, false
	}
	return req, true
}

// enrich runs a batch and responds with every item, enriched or annotated
func (h *Handler) enrich(c *gin.Context) {
	req, ok := bindEnrichRequest(c)
	if !ok {
		return
	}

	result, err := h.enrichment.EnrichInventory(c.Request.Context(), req.BatchID, req.ItemIDs, nil)
	if err != nil {
		h.respondError(c, "Enrichment failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// enrichAsync queues a batch for the enrichment worker
func (h *Handler) enrichAsync(c *gin.Context) {
	if h.requests == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Background enrichment is disabled"})
		return
	}
	req, ok := bindEnrichRequest(c)
	if !ok {
		return
	}
	if req.BatchID == "" {
		req.BatchID = uuid.New().String()
	}

	event := &models.EnrichmentRequestedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeEnrichmentRequested),
		BatchID:   req.BatchID,
		ItemIDs:   req.ItemIDs,
	}
	if err := h.requests.PublishEnrichmentRequested(c.Request.Context(), event); err != nil {
		h.respondError(c, "Failed to queue enrichment", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"batch_id": req.BatchID})
}

func (h *Handler) enrichmentProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.enrichment.Orchestrator().Progress())
}

// enrichStream runs a batch and streams its progress events over a
// WebSocket. Item ids come from the comma-separated ids query parameter.
// Closing the socket cancels the batch before its next item.
func (h *Handler) enrichStream(c *gin.Context) {
	ids := splitIDs(c.Query("ids"))
	batchID := c.Query("batch_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	progress := make(chan service.ProgressEvent, 16)
	var result *service.BatchResult
	var runErr error
	go func() {
		defer close(progress)
		result, runErr = h.enrichment.EnrichInventory(ctx, batchID, ids, progress)
	}()

	connected := true
	write := func(v interface{}) {
		if !connected {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("Progress stream closed", zap.Error(err))
			connected = false
			cancel()
		}
	}

	for ev := range progress {
		write(ev)
	}

	final := streamMessage{Kind: "result", Result: result}
	if runErr != nil {
		final.Error = runErr.Error()
	}
	write(final)

	if connected {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
