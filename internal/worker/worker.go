package worker

import (
	"context"

	"pawnshop-service/internal/broker"
	"pawnshop-service/internal/models"
	"pawnshop-service/internal/service"
	"pawnshop-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource is a stream of broker messages
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// BatchRunner runs one enrichment batch over the inventory
type BatchRunner interface {
	EnrichInventory(ctx context.Context, batchID string, itemIDs []string, progress chan<- service.ProgressEvent) (*service.BatchResult, error)
}

// EnrichmentWorker runs enrichment batches requested over Kafka
type EnrichmentWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	runner       BatchRunner
	logger       *zap.Logger
}

// NewEnrichmentWorker creates a new enrichment worker
func NewEnrichmentWorker(consumer MessageSource, runner BatchRunner) *EnrichmentWorker {
	w := &EnrichmentWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		runner:       runner,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnEnrichmentRequested(w.handleEnrichmentRequested)
	return w
}

// Start consumes requests until ctx is cancelled
func (w *EnrichmentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting enrichment worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *EnrichmentWorker) Stop() error {
	w.logger.Info("Stopping enrichment worker")
	return w.consumer.Close()
}

func (w *EnrichmentWorker) handleEnrichmentRequested(ctx context.Context, event *models.EnrichmentRequestedEvent) error {
	w.logger.Info("Processing enrichment request",
		zap.String("batch_id", event.BatchID),
		zap.Int("requested", len(event.ItemIDs)))

	result, err := w.runner.EnrichInventory(ctx, event.BatchID, event.ItemIDs, nil)
	if err != nil {
		w.logger.Error("Enrichment batch failed", zap.String("batch_id", event.BatchID), zap.Error(err))
		return err
	}

	w.logger.Info("Enrichment request completed",
		zap.String("batch_id", result.BatchID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return nil
}
