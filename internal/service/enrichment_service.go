package service

import (
	"context"
	"errors"
	"fmt"

	"pawnshop-service/internal/util"

	"go.uber.org/zap"
)

// EnrichmentService runs orchestrator batches against the inventory and
// writes the results back.
type EnrichmentService struct {
	inventory    *InventoryService
	orchestrator *EnrichmentOrchestrator
	logger       *zap.Logger
}

// NewEnrichmentService creates a new enrichment service
func NewEnrichmentService(inventory *InventoryService, orchestrator *EnrichmentOrchestrator) *EnrichmentService {
	return &EnrichmentService{
		inventory:    inventory,
		orchestrator: orchestrator,
		logger:       util.GetLogger(),
	}
}

// Orchestrator exposes the underlying orchestrator
func (s *EnrichmentService) Orchestrator() *EnrichmentOrchestrator {
	return s.orchestrator
}

// EnrichInventory enriches the selected items (every in-stock item when
// itemIDs is empty) and merges the results into the inventory. Items
// reached before a cancellation are still saved.
func (s *EnrichmentService) EnrichInventory(ctx context.Context, batchID string, itemIDs []string, progress chan<- ProgressEvent) (*BatchResult, error) {
	ctx, span := util.StartSpan(ctx, "EnrichmentService.EnrichInventory")
	defer span.End()

	items := s.inventory.Select(itemIDs)
	if len(items) == 0 {
		s.logger.Info("No items to enrich", zap.Strings("item_ids", itemIDs))
	}

	result, runErr := s.orchestrator.Run(ctx, batchID, items, progress)

	saveCtx := ctx
	if runErr != nil {
		saveCtx = context.WithoutCancel(ctx)
	}
	if err := s.inventory.MergeEnrichment(saveCtx, items, result.Items); err != nil {
		util.RecordError(span, err)
		return result, errors.Join(runErr, fmt.Errorf("failed to save enriched items: %w", err))
	}
	return result, runErr
}
