package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pawnshop-service/internal/importer"
	"pawnshop-service/internal/models"
	"pawnshop-service/internal/store"
	"pawnshop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemFilter narrows an inventory listing; zero fields match everything
type ItemFilter struct {
	Query           string
	Category        models.Category
	Status          models.ItemStatus
	TransactionType models.TransactionType
	FlaggedOnly     bool
}

// InventoryService owns the item collection. Every mutation is persisted
// before it becomes visible; a failed save leaves the collection unchanged.
type InventoryService struct {
	mu     sync.RWMutex
	items  []models.Item
	store  store.BlobStore
	events InventoryEvents
	logger *zap.Logger
	now    func() time.Time
}

// NewInventoryService creates a new inventory service. events may be nil.
func NewInventoryService(blobs store.BlobStore, events InventoryEvents) *InventoryService {
	return &InventoryService{
		items:  []models.Item{},
		store:  blobs,
		events: events,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Load replaces the in-memory collection with the persisted one
func (s *InventoryService) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Load")
	defer span.End()

	var items []models.Item
	err := store.LoadJSON(ctx, s.store, store.KeyInventory, &items)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		util.RecordError(span, err)
		return fmt.Errorf("failed to load inventory: %w", err)
	}
	if items == nil {
		items = []models.Item{}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.logger.Info("Inventory loaded", zap.Int("items", len(items)))
	return nil
}

// commit persists next and swaps it in. Caller holds mu.
func (s *InventoryService) commit(ctx context.Context, next []models.Item) error {
	if err := store.SaveJSON(ctx, s.store, store.KeyInventory, next); err != nil {
		return fmt.Errorf("failed to save inventory: %w", err)
	}
	s.items = next
	return nil
}

func (s *InventoryService) clone() []models.Item {
	out := make([]models.Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *InventoryService) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// List returns the items matching filter in collection order
func (s *InventoryService) List(filter ItemFilter) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		if q != "" && !matchesQuery(&item, q) {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.TransactionType != "" && item.TransactionType != filter.TransactionType {
			continue
		}
		if filter.FlaggedOnly && !item.IsFlagged {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesQuery(item *models.Item, q string) bool {
	for _, field := range []string{item.ItemName, item.Description, item.Brand, item.Model, item.ItemID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Get returns one item by id
func (s *InventoryService) Get(id string) (models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Item{}, ErrItemNotFound
	}
	return s.items[i], nil
}

// Select returns the items with the given ids in the order given, skipping
// unknown ids. No ids selects every in-stock item.
func (s *InventoryService) Select(ids []string) []models.Item {
	if len(ids) == 0 {
		return s.List(ItemFilter{Status: models.StatusInStock})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		if i := s.indexOf(id); i >= 0 {
			out = append(out, s.items[i])
		}
	}
	return out
}

// Add appends a new item
func (s *InventoryService) Add(ctx context.Context, item models.Item) (models.Item, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Add")
	defer span.End()

	now := s.now()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Category == "" {
		item.Category = models.CategoryOther
	}
	if item.Status == "" {
		item.Status = models.StatusInStock
	}
	if item.TransactionType == "" {
		item.TransactionType = models.TransactionPawn
	}
	if item.TransactionDate.IsZero() {
		item.TransactionDate = now
	}
	item.CreatedAt = now
	item.ModifiedAt = now
	item.CalculateProfit()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(item.ID) >= 0 {
		return models.Item{}, fmt.Errorf("item %s already exists", item.ID)
	}
	if err := s.commit(ctx, append(s.clone(), item)); err != nil {
		util.RecordError(span, err)
		return models.Item{}, err
	}
	return item, nil
}

// Update replaces an existing item and stamps its modification time
func (s *InventoryService) Update(ctx context.Context, item models.Item) (models.Item, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Update")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(item.ID)
	if i < 0 {
		return models.Item{}, ErrItemNotFound
	}

	item.CreatedAt = s.items[i].CreatedAt
	item.ModifiedAt = s.now()
	item.CalculateProfit()

	next := s.clone()
	next[i] = item
	if err := s.commit(ctx, next); err != nil {
		util.RecordError(span, err)
		return models.Item{}, err
	}
	return item, nil
}

// MergeEnrichment writes the outcome of an enrichment batch onto the
// current items. before and after are the batch input and output, paired
// by id. Only the enrichment fields the batch changed are copied, so edits
// made while the batch ran survive. Items deleted in the meantime are
// ignored.
func (s *InventoryService) MergeEnrichment(ctx context.Context, before, after []models.Item) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.MergeEnrichment")
	defer span.End()

	original := make(map[string]*models.Item, len(before))
	for i := range before {
		original[before[i].ID] = &before[i]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	next := s.clone()
	changed := 0
	for i := range after {
		was, ok := original[after[i].ID]
		if !ok {
			continue
		}
		j := s.indexOf(after[i].ID)
		if j < 0 {
			continue
		}
		if mergeEnriched(&next[j], was, &after[i]) {
			next[j].ModifiedAt = now
			changed++
		}
	}
	if changed == 0 {
		return nil
	}
	if err := s.commit(ctx, next); err != nil {
		util.RecordError(span, err)
		return err
	}
	return nil
}

// mergeEnriched copies onto dst every enrichment field that differs
// between was and now. A note appended by the batch is appended to dst's
// own notes.
func mergeEnriched(dst, was, now *models.Item) bool {
	changed := false
	set := func(differs bool, apply func()) {
		if differs {
			apply()
			changed = true
		}
	}

	set(was.AIAnalysis != now.AIAnalysis, func() { dst.AIAnalysis = now.AIAnalysis })
	set(!samePtr(was.MarketValue, now.MarketValue), func() { dst.MarketValue = now.MarketValue })
	set(!samePtr(was.SuggestedLoanAmount, now.SuggestedLoanAmount), func() { dst.SuggestedLoanAmount = now.SuggestedLoanAmount })
	set(!samePtr(was.SuggestedBuyPrice, now.SuggestedBuyPrice), func() { dst.SuggestedBuyPrice = now.SuggestedBuyPrice })
	set(!samePtr(was.ProfitMargin, now.ProfitMargin), func() { dst.ProfitMargin = now.ProfitMargin })
	set(!samePtr(was.AuthenticityScore, now.AuthenticityScore), func() { dst.AuthenticityScore = now.AuthenticityScore })
	set(was.AuthenticityStatus != now.AuthenticityStatus, func() { dst.AuthenticityStatus = now.AuthenticityStatus })
	set(was.Condition != now.Condition, func() { dst.Condition = now.Condition })
	set(was.RiskLevel != now.RiskLevel, func() { dst.RiskLevel = now.RiskLevel })

	// comparable-sale fields move together
	set(!sameTime(was.LastPriceUpdate, now.LastPriceUpdate), func() {
		dst.EbayAveragePrice = now.EbayAveragePrice
		dst.EbayRecentSales = now.EbayRecentSales
		dst.EbayListingCount = now.EbayListingCount
		dst.LastPriceUpdate = now.LastPriceUpdate
	})

	if now.Notes != was.Notes && strings.HasPrefix(now.Notes, was.Notes) {
		set(true, func() { dst.Notes += now.Notes[len(was.Notes):] })
	}
	return changed
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Delete removes one item
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}

	next := make([]models.Item, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	return s.commit(ctx, next)
}

// ClearSold removes every sold item and reports how many were removed
func (s *InventoryService) ClearSold(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Status != models.StatusSold {
			next = append(next, item)
		}
	}
	removed := len(s.items) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteAll empties the inventory
func (s *InventoryService) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, []models.Item{})
}

// ImportCSV parses an import file and appends every usable row
func (s *InventoryService) ImportCSV(ctx context.Context, text string, onProgress importer.ProgressFunc) (*importer.Result, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ImportCSV")
	defer span.End()

	result := importer.Parse(text, s.now(), onProgress)

	s.mu.Lock()
	next := append(s.clone(), result.Items...)
	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.ImportRowsTotal.WithLabelValues("imported").Add(float64(len(result.Items)))
	util.ImportRowsTotal.WithLabelValues("skipped").Add(float64(result.Skipped))

	s.logger.Info("Inventory imported",
		zap.Int("imported", len(result.Items)),
		zap.Int("skipped", result.Skipped),
		zap.Int("rows", result.Total))

	if s.events != nil {
		event := &models.ItemsImportedEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeItemsImported),
			Imported:  len(result.Items),
			Skipped:   result.Skipped,
		}
		if err := s.events.PublishItemsImported(ctx, event); err != nil {
			s.logger.Error("Failed to publish ItemsImported event", zap.Error(err))
		}
	}

	return result, nil
}

// Statistics summarizes the collection. Value covers in-stock purchase
// prices; profit and margin cover sold items.
func (s *InventoryService) Statistics() models.InventoryStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.InventoryStatistics{
		TotalItems: len(s.items),
		ByCategory: make(map[models.Category]models.CategoryStats, len(models.Categories)),
	}
	for _, c := range models.Categories {
		stats.ByCategory[c] = models.CategoryStats{}
	}

	var marginSum float64
	var marginCount int
	for _, item := range s.items {
		switch item.Status {
		case models.StatusInStock:
			stats.TotalInventoryValue += item.PurchasePrice
			cs := stats.ByCategory[item.Category]
			cs.Count++
			cs.Value += item.PurchasePrice
			stats.ByCategory[item.Category] = cs
		case models.StatusSold:
			if item.Profit != nil {
				stats.TotalProfit += *item.Profit
			}
			if item.ProfitMargin != nil {
				marginSum += *item.ProfitMargin
				marginCount++
			}
		}
	}
	if marginCount > 0 {
		stats.AverageProfitMargin = marginSum / float64(marginCount)
	}
	return stats
}
