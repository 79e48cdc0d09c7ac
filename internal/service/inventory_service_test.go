package service

import (
	"context"
	"testing"
	"time"

	"pawnshop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventory(t *testing.T) (*InventoryService, *failingStore, *fakeEvents) {
	t.Helper()
	blobs := &failingStore{BlobStore: newFileStore(t)}
	events := &fakeEvents{}
	s := NewInventoryService(blobs, events)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, s.Load(context.Background()))
	return s, blobs, events
}

func TestAddAppliesDefaults(t *testing.T) {
	s, _, _ := newInventory(t)

	item, err := s.Add(context.Background(), models.Item{ItemName: "Drill", PurchasePrice: 40})

	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, models.CategoryOther, item.Category)
	assert.Equal(t, models.StatusInStock, item.Status)
	assert.Equal(t, models.TransactionPawn, item.TransactionType)
	assert.Equal(t, s.now(), item.TransactionDate)
	assert.Equal(t, s.now(), item.CreatedAt)

	got, err := s.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s, _, _ := newInventory(t)
	ctx := context.Background()

	_, err := s.Add(ctx, models.Item{ID: "a", ItemName: "Drill"})
	require.NoError(t, err)
	_, err = s.Add(ctx, models.Item{ID: "a", ItemName: "Saw"})

	assert.Error(t, err)
	assert.Len(t, s.List(ItemFilter{}), 1)
}

func TestUpdateComputesProfit(t *testing.T) {
	s, _, _ := newInventory(t)
	ctx := context.Background()
	item, err := s.Add(ctx, models.Item{ItemName: "Guitar", PurchasePrice: 200})
	require.NoError(t, err)

	item.Status = models.StatusSold
	item.ActualSalePrice = ptr(300.0)
	updated, err := s.Update(ctx, item)

	require.NoError(t, err)
	require.NotNil(t, updated.Profit)
	assert.Equal(t, 100.0, *updated.Profit)
	assert.Equal(t, 50.0, *updated.ProfitMargin)

	_, err = s.Update(ctx, models.Item{ID: "missing"})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestFailedSaveLeavesInventoryUnchanged(t *testing.T) {
	s, blobs, _ := newInventory(t)
	ctx := context.Background()
	item, err := s.Add(ctx, models.Item{ItemName: "Ring", PurchasePrice: 100})
	require.NoError(t, err)

	blobs.broken = true

	_, err = s.Add(ctx, models.Item{ItemName: "Watch"})
	assert.Error(t, err)

	changed := item
	changed.PurchasePrice = 999
	_, err = s.Update(ctx, changed)
	assert.Error(t, err)

	assert.Error(t, s.Delete(ctx, item.ID))
	assert.Error(t, s.DeleteAll(ctx))

	items := s.List(ItemFilter{})
	require.Len(t, items, 1)
	assert.Equal(t, 100.0, items[0].PurchasePrice)
}

func TestListFilters(t *testing.T) {
	s, _, _ := newInventory(t)
	ctx := context.Background()
	for _, item := range []models.Item{
		{ID: "1", ItemName: "Rolex Submariner", Brand: "Rolex", Category: models.CategoryWatches},
		{ID: "2", ItemName: "PS5", Category: models.CategoryGaming, Status: models.StatusSold},
		{ID: "3", ItemName: "Gold chain", Category: models.CategoryJewelry, IsFlagged: true, TransactionType: models.TransactionBuy},
	} {
		_, err := s.Add(ctx, item)
		require.NoError(t, err)
	}

	ids := func(items []models.Item) []string {
		out := []string{}
		for _, item := range items {
			out = append(out, item.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids(s.List(ItemFilter{})))
	assert.Equal(t, []string{"1"}, ids(s.List(ItemFilter{Query: "rolex"})))
	assert.Equal(t, []string{"2"}, ids(s.List(ItemFilter{Category: models.CategoryGaming})))
	assert.Equal(t, []string{"2"}, ids(s.List(ItemFilter{Status: models.StatusSold})))
	assert.Equal(t, []string{"3"}, ids(s.List(ItemFilter{FlaggedOnly: true})))
	assert.Equal(t, []string{"3"}, ids(s.List(ItemFilter{TransactionType: models.TransactionBuy})))

	assert.Equal(t, []string{"1", "3"}, ids(s.Select(nil)), "no ids selects in-stock items")
	assert.Equal(t, []string{"3", "2"}, ids(s.Select([]string{"3", "missing", "2"})))
}

func TestClearSold(t *testing.T) {
	s, _, _ := newInventory(t)
	ctx := context.Background()
	_, err := s.Add(ctx, models.Item{ID: "1", ItemName: "A"})
	require.NoError(t, err)
	_, err = s.Add(ctx, models.Item{ID: "2", ItemName: "B", Status: models.StatusSold})
	require.NoError(t, err)

	removed, err := s.ClearSold(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = s.Get("2")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMergeEnrichmentIgnoresDeletedItems(t *testing.T) {
	s, _, _ := newInventory(t)
	ctx := context.Background()
	item, err := s.Add(ctx, models.Item{ID: "1", ItemName: "A"})
	require.NoError(t, err)

	enriched := item
	enriched.Condition = models.ConditionGood
	gone := models.Item{ID: "gone"}
	goneEnriched := models.Item{ID: "gone", Condition: models.ConditionPoor}

	require.NoError(t, s.MergeEnrichment(ctx,
		[]models.Item{item, gone},
		[]models.Item{enriched, goneEnriched}))

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, models.ConditionGood, got.Condition)
	assert.Equal(t, s.now(), got.ModifiedAt)
	assert.Len(t, s.List(ItemFilter{}), 1)
}

func TestMergeEnrichmentKeepsConcurrentEdits(t *testing.T) {
	s, _, _ := newInventory(t)
	ctx := context.Background()
	before, err := s.Add(ctx, models.Item{ID: "1", ItemName: "Rolex", PurchasePrice: 5000, Notes: "walk-in", MarketValue: ptr(9000.0)})
	require.NoError(t, err)

	after := before
	after.AIAnalysis = "Condition: excellent"
	after.Condition = models.ConditionExcellent
	after.MarketValue = ptr(9000.0)
	after.Notes = "walk-in\nError: pricing failed"

	edited := before
	edited.Status = models.StatusSold
	edited.ActualSalePrice = ptr(8000.0)
	edited.Notes = "walk-in, sold to regular"
	edited.MarketValue = ptr(9500.0)
	_, err = s.Update(ctx, edited)
	require.NoError(t, err)

	require.NoError(t, s.MergeEnrichment(ctx, []models.Item{before}, []models.Item{after}))

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSold, got.Status)
	require.NotNil(t, got.ActualSalePrice)
	assert.Equal(t, 8000.0, *got.ActualSalePrice)
	require.NotNil(t, got.MarketValue)
	assert.Equal(t, 9500.0, *got.MarketValue, "unchanged by the batch, so the newer edit stays")
	assert.Equal(t, models.ConditionExcellent, got.Condition)
	assert.Equal(t, "Condition: excellent", got.AIAnalysis)
	assert.Equal(t, "walk-in, sold to regular\nError: pricing failed", got.Notes)
}

func TestMergeEnrichmentSkipsUntouchedItems(t *testing.T) {
	s, blobs, _ := newInventory(t)
	ctx := context.Background()
	item, err := s.Add(ctx, models.Item{ID: "1", ItemName: "A"})
	require.NoError(t, err)

	blobs.broken = true
	assert.NoError(t, s.MergeEnrichment(ctx, []models.Item{item}, []models.Item{item}))
}

func TestImportCSVAppendsAndPersists(t *testing.T) {
	s, blobs, events := newInventory(t)
	ctx := context.Background()
	_, err := s.Add(ctx, models.Item{ID: "existing", ItemName: "Saw"})
	require.NoError(t, err)

	text := "Ticket,Date,Customer,Description,Loan,Rate,Due,Status\n" +
		"1001,01/02/2024,Jane Doe,\"Diamond necklace, 18in\",$800,10%,02/02/2024,Active\n" +
		"short,row\n" +
		"1002,,Bob,Xbox Series X - boxed,$300,,,sold\n"

	var calls int
	result, err := s.ImportCSV(ctx, text, func(current, total int) { calls++ })

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, s.List(ItemFilter{}), 3)

	require.Len(t, events.imported, 1)
	assert.Equal(t, 2, events.imported[0].Imported)

	reloaded := NewInventoryService(blobs, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Len(t, reloaded.List(ItemFilter{}), 3)
}

func TestStatistics(t *testing.T) {
	s, _, _ := newInventory(t)
	ctx := context.Background()
	for _, item := range []models.Item{
		{ItemName: "Ring", Category: models.CategoryJewelry, PurchasePrice: 100},
		{ItemName: "Chain", Category: models.CategoryJewelry, PurchasePrice: 50},
		{ItemName: "TV", Category: models.CategoryElectronics, PurchasePrice: 200, Status: models.StatusSold, ActualSalePrice: ptr(300.0)},
		{ItemName: "Drill", Category: models.CategoryTools, PurchasePrice: 100, Status: models.StatusSold, ActualSalePrice: ptr(120.0)},
		{ItemName: "Bike", Category: models.CategoryOther, PurchasePrice: 80, Status: models.StatusRedeemed},
	} {
		_, err := s.Add(ctx, item)
		require.NoError(t, err)
	}

	stats := s.Statistics()

	assert.Equal(t, 5, stats.TotalItems)
	assert.Equal(t, 150.0, stats.TotalInventoryValue)
	assert.Equal(t, 120.0, stats.TotalProfit)
	assert.InDelta(t, 35.0, stats.AverageProfitMargin, 1e-9)
	assert.Equal(t, models.CategoryStats{Count: 2, Value: 150}, stats.ByCategory[models.CategoryJewelry])
	assert.Equal(t, models.CategoryStats{}, stats.ByCategory[models.CategoryElectronics])
	assert.Len(t, stats.ByCategory, len(models.Categories))
}

func TestLoadRejectsCorruptInventory(t *testing.T) {
	blobs := newFileStore(t)
	require.NoError(t, blobs.Save(context.Background(), "inventory.json", []byte(`{"not":"a list"}`)))

	err := NewInventoryService(blobs, nil).Load(context.Background())

	assert.Error(t, err)
}
