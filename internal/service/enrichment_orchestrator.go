package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pawnshop-service/internal/analysis"
	"pawnshop-service/internal/models"
	"pawnshop-service/internal/provider"
	"pawnshop-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultItemDelay is the pause between items of a batch
const DefaultItemDelay = 500 * time.Millisecond

// ProgressKind tags a progress event
type ProgressKind string

const (
	ProgressStarted     ProgressKind = "started"
	ProgressPartialText ProgressKind = "partial_text"
	ProgressItemUpdated ProgressKind = "item_updated"
	ProgressCompleted   ProgressKind = "completed"
)

// ProgressEvent is one step of a running batch. All events of item i are
// sent before any event of item i+1.
type ProgressEvent struct {
	Kind     ProgressKind `json:"kind"`
	BatchID  string       `json:"batch_id"`
	Current  int          `json:"current"`
	Total    int          `json:"total"`
	ItemName string       `json:"item_name,omitempty"`
	Text     string       `json:"text,omitempty"`
	Item     *models.Item `json:"item,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Progress is a snapshot of the batch currently running
type Progress struct {
	Running  bool   `json:"running"`
	BatchID  string `json:"batch_id,omitempty"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	ItemName string `json:"item_name,omitempty"`
}

// BatchResult holds every input item, enriched or annotated, in input order
type BatchResult struct {
	BatchID   string        `json:"batch_id"`
	Items     []models.Item `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// EnrichmentOrchestrator runs analysis and pricing over items one at a time
type EnrichmentOrchestrator struct {
	analyzer  Analyzer
	pricing   PricingProvider
	events    EnrichmentEvents
	itemDelay time.Duration
	logger    *zap.Logger
	now       func() time.Time

	batchMu sync.Mutex

	progressMu sync.RWMutex
	progress   Progress
}

// NewEnrichmentOrchestrator creates a new orchestrator. events may be nil.
func NewEnrichmentOrchestrator(
	analyzer Analyzer,
	pricing PricingProvider,
	events EnrichmentEvents,
	itemDelay time.Duration,
) *EnrichmentOrchestrator {
	if itemDelay < 0 {
		itemDelay = 0
	}
	return &EnrichmentOrchestrator{
		analyzer:  analyzer,
		pricing:   pricing,
		events:    events,
		itemDelay: itemDelay,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// Progress returns the state of the running batch
func (o *EnrichmentOrchestrator) Progress() Progress {
	o.progressMu.RLock()
	defer o.progressMu.RUnlock()
	return o.progress
}

func (o *EnrichmentOrchestrator) setProgress(p Progress) {
	o.progressMu.Lock()
	o.progress = p
	o.progressMu.Unlock()
}

// Run enriches items in order. Batches never overlap: a second caller
// waits for the running batch to finish. A provider failure is recorded
// on its item and the batch moves on. Cancellation is honoured between
// provider calls; the items not reached are returned untouched along with
// the context error. progress may be nil; when set it must be drained.
func (o *EnrichmentOrchestrator) Run(ctx context.Context, batchID string, items []models.Item, progress chan<- ProgressEvent) (*BatchResult, error) {
	if batchID == "" {
		batchID = uuid.New().String()
	}

	ctx, span := util.StartSpan(ctx, "EnrichmentOrchestrator.Run",
		attribute.String("batch_id", batchID),
		attribute.Int("items", len(items)),
	)
	defer span.End()

	o.batchMu.Lock()
	defer o.batchMu.Unlock()

	start := time.Now()
	defer func() {
		util.EnrichmentBatchDuration.Observe(time.Since(start).Seconds())
	}()

	total := len(items)
	result := &BatchResult{
		BatchID: batchID,
		Items:   make([]models.Item, total),
	}
	copy(result.Items, items)

	o.setProgress(Progress{Running: true, BatchID: batchID, Total: total})
	defer o.setProgress(Progress{})

	o.logger.Info("Enrichment batch started", zap.String("batch_id", batchID), zap.Int("items", total))

	emit := func(ev ProgressEvent) {
		if progress == nil {
			return
		}
		ev.BatchID = batchID
		ev.Total = total
		select {
		case progress <- ev:
		case <-ctx.Done():
		}
	}

	var runErr error
	for i := range result.Items {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		item := &result.Items[i]
		o.setProgress(Progress{Running: true, BatchID: batchID, Current: i + 1, Total: total, ItemName: item.ItemName})
		emit(ProgressEvent{Kind: ProgressStarted, Current: i + 1, ItemName: item.ItemName})

		onPartial := func(text string) {
			emit(ProgressEvent{Kind: ProgressPartialText, Current: i + 1, ItemName: item.ItemName, Text: text})
		}

		enriched, err := o.enrichItem(ctx, *item, onPartial)
		if err != nil {
			item.Notes += "\nError: " + err.Error()
			result.Failed++
			o.recordFailure(ctx, batchID, item, err)
			emit(ProgressEvent{Kind: ProgressItemUpdated, Current: i + 1, ItemName: item.ItemName, Item: copyItem(item), Error: err.Error()})
		} else {
			*item = enriched
			result.Succeeded++
			o.recordSuccess(ctx, batchID, item)
			emit(ProgressEvent{Kind: ProgressItemUpdated, Current: i + 1, ItemName: item.ItemName, Item: copyItem(item)})
		}

		if i < total-1 {
			if err := sleepCtx(ctx, o.itemDelay); err != nil {
				runErr = err
				break
			}
		}
	}

	emit(ProgressEvent{Kind: ProgressCompleted, Current: result.Succeeded + result.Failed})

	if o.events != nil {
		event := &models.BatchCompletedEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeBatchCompleted),
			BatchID:   batchID,
			Total:     total,
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
		}
		if err := o.events.PublishBatchCompleted(context.WithoutCancel(ctx), event); err != nil {
			o.logger.Error("Failed to publish BatchCompleted event", zap.Error(err))
		}
	}

	o.logger.Info("Enrichment batch finished",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(start)))

	if runErr != nil {
		util.RecordError(span, runErr)
		return result, runErr
	}
	return result, nil
}

// enrichItem returns the enriched copy of item. On error the caller keeps
// the original.
func (o *EnrichmentOrchestrator) enrichItem(ctx context.Context, item models.Item, onPartial func(string)) (models.Item, error) {
	ctx, span := util.StartSpan(ctx, "EnrichmentOrchestrator.enrichItem", attribute.String("item_id", item.ID))
	defer span.End()

	text, err := o.analyzer.Analyze(ctx, analysis.BuildPrompt(&item), onPartial)
	if err != nil {
		util.RecordError(span, err)
		return item, fmt.Errorf("analysis failed: %w", err)
	}
	item.AIAnalysis = text
	analysis.Parse(text).Apply(&item)

	result, err := o.pricing.Price(ctx, item.PricingQuery(), item.Category)
	if err != nil {
		util.RecordError(span, err)
		return item, fmt.Errorf("pricing failed: %w", err)
	}
	ApplyPricing(&item, result, o.now())

	return item, nil
}

// ApplyPricing merges a pricing result into the item's comparable-sale
// fields and adopts the average as market value when none is known.
func ApplyPricing(item *models.Item, result models.PricingResult, at time.Time) {
	item.EbayAveragePrice = result.AveragePrice
	item.EbayRecentSales = result.Sales
	count := result.Count
	item.EbayListingCount = &count
	item.LastPriceUpdate = &at

	if item.MarketValue == nil && result.AveragePrice != nil {
		avg := *result.AveragePrice
		item.MarketValue = &avg
	}
}

func (o *EnrichmentOrchestrator) recordSuccess(ctx context.Context, batchID string, item *models.Item) {
	util.ItemsEnrichedTotal.Inc()

	if o.events == nil {
		return
	}
	event := &models.ItemEnrichedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeItemEnriched),
		BatchID:     batchID,
		ItemID:      item.ID,
		ItemName:    item.ItemName,
		MarketValue: item.MarketValue,
	}
	if err := o.events.PublishItemEnriched(ctx, event); err != nil {
		o.logger.Error("Failed to publish ItemEnriched event", zap.Error(err))
	}
}

func (o *EnrichmentOrchestrator) recordFailure(ctx context.Context, batchID string, item *models.Item, cause error) {
	util.ItemsEnrichmentFailedTotal.WithLabelValues(provider.KindLabel(cause)).Inc()

	o.logger.Warn("Item enrichment failed",
		zap.String("batch_id", batchID),
		zap.String("item_id", item.ID),
		zap.String("item_name", item.ItemName),
		zap.Error(cause))

	if o.events == nil {
		return
	}
	event := &models.ItemEnrichmentFailedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeItemEnrichmentFailed),
		BatchID:   batchID,
		ItemID:    item.ID,
		ItemName:  item.ItemName,
		Reason:    cause.Error(),
	}
	if err := o.events.PublishItemEnrichmentFailed(ctx, event); err != nil {
		o.logger.Error("Failed to publish ItemEnrichmentFailed event", zap.Error(err))
	}
}

func copyItem(item *models.Item) *models.Item {
	c := *item
	return &c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
