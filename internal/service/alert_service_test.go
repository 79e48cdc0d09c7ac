package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pawnshop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeLedger) MarkNotified(_ context.Context, alertID string, armedAt time.Time, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	key := fmt.Sprintf("notified:%s:%d", alertID, armedAt.UnixNano())
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type alertFixture struct {
	inventory *InventoryService
	alerts    *AlertService
	pricing   *fakePricing
	notifier  *fakeNotifier
	events    *fakeEvents
	blobs     *failingStore
}

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func newAlertFixture(t *testing.T, items ...models.Item) *alertFixture {
	t.Helper()
	ctx := context.Background()

	blobs := &failingStore{BlobStore: newFileStore(t)}
	inventory := NewInventoryService(blobs, nil)
	require.NoError(t, inventory.Load(ctx))
	for _, item := range items {
		_, err := inventory.Add(ctx, item)
		require.NoError(t, err)
	}

	f := &alertFixture{
		inventory: inventory,
		pricing:   &fakePricing{},
		notifier:  &fakeNotifier{},
		events:    &fakeEvents{},
		blobs:     blobs,
	}
	f.alerts = NewAlertService(blobs, inventory, f.pricing, f.notifier, nil, f.events, 0)
	f.alerts.now = func() time.Time { return fixedNow }
	require.NoError(t, f.alerts.Load(ctx))
	return f
}

func rolex() models.Item {
	return models.Item{ID: "rolex", ItemName: "Rolex Submariner", Category: models.CategoryWatches, PurchasePrice: 600, MarketValue: ptr(1000.0)}
}

func TestCreateAlertDefaults(t *testing.T) {
	f := newAlertFixture(t, rolex())

	alert, err := f.alerts.Create(context.Background(), CreateAlertRequest{ItemID: "rolex", ShopID: "main"})

	require.NoError(t, err)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, "Rolex Submariner", alert.ItemName)
	assert.Equal(t, models.CategoryWatches, alert.Category)
	assert.Equal(t, 1000.0, alert.OriginalPrice)
	assert.Equal(t, 1000.0, alert.CurrentPrice)
	assert.Equal(t, 10.0, alert.PercentageChange)
	assert.True(t, alert.AlertOnIncrease)
	assert.True(t, alert.AlertOnDecrease)
	assert.True(t, alert.IsActive)
	assert.False(t, alert.NotificationSent)
	assert.Equal(t, fixedNow, alert.CreatedDate)
	assert.Equal(t, fixedNow, alert.ArmedDate)
	assert.Equal(t, "main", alert.ShopID)
	assert.Equal(t, []string{alert.ID}, f.events.created)
}

func TestCreateAlertUsesComparableAverage(t *testing.T) {
	item := models.Item{ID: "tv", ItemName: "TV", EbayAveragePrice: ptr(450.0)}
	f := newAlertFixture(t, item)

	alert, err := f.alerts.Create(context.Background(), CreateAlertRequest{ItemID: "tv", PercentageChange: ptr(15.0)})

	require.NoError(t, err)
	assert.Equal(t, 450.0, alert.OriginalPrice)
	assert.Equal(t, 15.0, alert.PercentageChange)
}

func TestCreateAlertErrors(t *testing.T) {
	f := newAlertFixture(t, rolex(),
		models.Item{ID: "bare", ItemName: "Bare"},
		models.Item{ID: "free", ItemName: "Free", MarketValue: ptr(0.0)})
	ctx := context.Background()

	_, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "bare"})
	assert.ErrorIs(t, err, ErrNoPrice)

	_, err = f.alerts.Create(ctx, CreateAlertRequest{ItemID: "free"})
	assert.ErrorIs(t, err, ErrNoPrice, "a zero price cannot anchor a percentage move")

	_, err = f.alerts.Create(ctx, CreateAlertRequest{ItemID: "missing"})
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = f.alerts.Create(ctx, CreateAlertRequest{})
	assert.Error(t, err)

	_, err = f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex", PercentageChange: ptr(-5.0)})
	assert.Error(t, err)

	_, err = f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex", TargetPrice: ptr(0.0)})
	assert.Error(t, err)

	assert.Empty(t, f.alerts.List())
}

func TestCheckAllFiresOnIncrease(t *testing.T) {
	f := newAlertFixture(t, rolex())
	ctx := context.Background()
	alert, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)

	f.pricing.setPrice("Rolex Submariner", 1110)
	summary, err := f.alerts.CheckAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Checked: 1, Triggered: 1}, summary)

	got, err := f.alerts.Get(alert.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent)
	assert.Equal(t, 1110.0, got.CurrentPrice)
	require.NotNil(t, got.TriggeredDate)
	assert.Equal(t, fixedNow, *got.TriggeredDate)

	notes := f.notifier.sent()
	require.Len(t, notes, 1)
	assert.Equal(t, "Price Increased: Rolex Submariner", notes[0].Title)
	assert.Equal(t, "$1000.00 → $1110.00 (+11.0%) - Good time to sell!", notes[0].Body)

	item, err := f.inventory.Get("rolex")
	require.NoError(t, err)
	assert.Equal(t, 1110.0, *item.MarketValue)
	assert.Equal(t, 1110.0, *item.EbayAveragePrice)
	require.NotNil(t, item.LastPriceUpdate)

	// fired alerts stay quiet until reset
	f.pricing.setPrice("Rolex Submariner", 1500)
	summary, err = f.alerts.CheckAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{}, summary)
	assert.Len(t, f.notifier.sent(), 1)

	reset, err := f.alerts.Reset(ctx, alert.ID)
	require.NoError(t, err)
	assert.False(t, reset.NotificationSent)
	assert.Equal(t, 1110.0, reset.OriginalPrice)
	assert.Nil(t, reset.TriggeredDate)
}

func TestCheckAllFiresOnDecrease(t *testing.T) {
	f := newAlertFixture(t, rolex())
	ctx := context.Background()
	_, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)

	f.pricing.setPrice("Rolex Submariner", 890)
	summary, err := f.alerts.CheckAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Triggered)
	notes := f.notifier.sent()
	require.Len(t, notes, 1)
	assert.Equal(t, "Price Decreased: Rolex Submariner", notes[0].Title)
}

func TestCheckAllRecordsQuietObservation(t *testing.T) {
	f := newAlertFixture(t, rolex())
	ctx := context.Background()
	alert, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)

	f.pricing.setPrice("Rolex Submariner", 1090)
	summary, err := f.alerts.CheckAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Checked: 1}, summary)
	assert.Empty(t, f.notifier.sent())

	reloaded := NewAlertService(f.blobs, f.inventory, f.pricing, nil, nil, nil, 0)
	require.NoError(t, reloaded.Load(ctx))
	got, err := reloaded.Get(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 1090.0, got.CurrentPrice)
	assert.False(t, got.NotificationSent)
	require.NotNil(t, got.LastCheckedDate)

	item, err := f.inventory.Get("rolex")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, *item.MarketValue, "quiet checks leave the item alone")
}

func TestCheckAllIsolatesFailures(t *testing.T) {
	watch := rolex()
	ring := models.Item{ID: "ring", ItemName: "Gold ring", MarketValue: ptr(300.0)}
	gone := models.Item{ID: "gone", ItemName: "Drill", MarketValue: ptr(80.0)}
	f := newAlertFixture(t, watch, ring, gone)
	ctx := context.Background()

	for _, id := range []string{"rolex", "ring", "gone"} {
		_, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: id})
		require.NoError(t, err)
	}
	require.NoError(t, f.inventory.Delete(ctx, "gone"))

	f.pricing.fail = map[string]error{"Rolex Submariner": errors.New("upstream down")}
	f.pricing.setPrice("Gold ring", 360)

	summary, err := f.alerts.CheckAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Checked: 1, Triggered: 1, Skipped: 1, Failed: 1}, summary)
	assert.Len(t, f.notifier.sent(), 1)
}

func TestCheckAllSkipsInactiveAndUnpriced(t *testing.T) {
	f := newAlertFixture(t, rolex(), models.Item{ID: "ring", ItemName: "Gold ring", MarketValue: ptr(300.0)})
	ctx := context.Background()
	watch, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)
	_, err = f.alerts.Create(ctx, CreateAlertRequest{ItemID: "ring"})
	require.NoError(t, err)

	toggled, err := f.alerts.Toggle(ctx, watch.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	f.pricing.setPrice("Rolex Submariner", 5000)
	summary, err := f.alerts.CheckAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Skipped: 1}, summary, "ring has no comparable sales")
	assert.Empty(t, f.notifier.sent())
}

func TestCheckAllDeliversOncePerArming(t *testing.T) {
	f := newAlertFixture(t, rolex())
	ctx := context.Background()
	ledger := &fakeLedger{}
	f.alerts.ledger = ledger
	clock := fixedNow
	f.alerts.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	alert, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)

	f.pricing.setPrice("Rolex Submariner", 1200)
	f.blobs.broken = true
	_, err = f.alerts.CheckAll(ctx)
	require.Error(t, err)
	assert.Len(t, f.notifier.sent(), 1)

	// the save failed so the alert is still armed; the same move is not resent
	f.blobs.broken = false
	got, err := f.alerts.Get(alert.ID)
	require.NoError(t, err)
	assert.False(t, got.NotificationSent)

	summary, err := f.alerts.CheckAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Triggered)
	assert.Len(t, f.notifier.sent(), 1)

	// a reset re-arms the alert, so the next move notifies again
	_, err = f.alerts.Reset(ctx, alert.ID)
	require.NoError(t, err)
	f.pricing.setPrice("Rolex Submariner", 1500)
	_, err = f.alerts.CheckAll(ctx)
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent(), 2)
}

func TestCheckAllSeesMovesBehindPricingCache(t *testing.T) {
	f := newAlertFixture(t, rolex())
	ctx := context.Background()
	cache := &memoryCache{}
	pricing := NewPricingService(f.pricing, cache, time.Hour)
	f.alerts.pricing = pricing.Live()
	_, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)

	f.pricing.setPrice("Rolex Submariner", 1000)
	summary, err := f.alerts.CheckAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Checked: 1}, summary)

	f.pricing.setPrice("Rolex Submariner", 1500)
	summary, err = f.alerts.CheckAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, CheckSummary{Checked: 1, Triggered: 1}, summary)
	assert.Len(t, f.notifier.sent(), 1)

	cached, ok, err := cache.GetPricing(ctx, "Rolex Submariner", models.CategoryWatches)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1500.0, *cached.AveragePrice, "checks refresh the cache for other readers")
}

func TestUpdateAlert(t *testing.T) {
	f := newAlertFixture(t, rolex())
	ctx := context.Background()
	alert, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex", TargetPrice: ptr(1500.0)})
	require.NoError(t, err)

	updated, err := f.alerts.Update(ctx, alert.ID, UpdateAlertRequest{
		PercentageChange: ptr(25.0),
		ClearTargetPrice: true,
		AlertOnDecrease:  ptr(false),
	})

	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.PercentageChange)
	assert.Nil(t, updated.TargetPrice)
	assert.False(t, updated.AlertOnDecrease)
	assert.True(t, updated.AlertOnIncrease)

	_, err = f.alerts.Update(ctx, "missing", UpdateAlertRequest{})
	assert.ErrorIs(t, err, ErrAlertNotFound)

	_, err = f.alerts.Update(ctx, alert.ID, UpdateAlertRequest{PercentageChange: ptr(5000.0)})
	assert.Error(t, err)
}

func TestDeleteAndClearTriggered(t *testing.T) {
	f := newAlertFixture(t, rolex(), models.Item{ID: "ring", ItemName: "Gold ring", MarketValue: ptr(300.0)})
	ctx := context.Background()
	watch, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)
	ring, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "ring"})
	require.NoError(t, err)

	f.pricing.setPrice("Rolex Submariner", 2000)
	_, err = f.alerts.CheckAll(ctx)
	require.NoError(t, err)

	removed, err := f.alerts.ClearTriggered(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.alerts.Get(watch.ID)
	assert.ErrorIs(t, err, ErrAlertNotFound)

	require.NoError(t, f.alerts.Delete(ctx, ring.ID))
	assert.Empty(t, f.alerts.List())
	assert.ErrorIs(t, f.alerts.Delete(ctx, ring.ID), ErrAlertNotFound)
}

func TestCreateForAllInventory(t *testing.T) {
	f := newAlertFixture(t,
		rolex(),
		models.Item{ID: "ring", ItemName: "Gold ring", MarketValue: ptr(300.0)},
		models.Item{ID: "bare", ItemName: "Bare"},
		models.Item{ID: "sold", ItemName: "Sold TV", MarketValue: ptr(400.0), Status: models.StatusSold},
	)
	ctx := context.Background()
	_, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: "rolex"})
	require.NoError(t, err)

	created, err := f.alerts.CreateForAllInventory(ctx, 20)

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "ring", created[0].ItemID)
	assert.Equal(t, 20.0, created[0].PercentageChange)
	assert.Len(t, f.alerts.List(), 2)

	again, err := f.alerts.CreateForAllInventory(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestAlertStatistics(t *testing.T) {
	f := newAlertFixture(t,
		rolex(),
		models.Item{ID: "ring", ItemName: "Gold ring", Category: models.CategoryJewelry, MarketValue: ptr(2000.0)},
	)
	ctx := context.Background()
	for _, id := range []string{"rolex", "ring"} {
		_, err := f.alerts.Create(ctx, CreateAlertRequest{ItemID: id})
		require.NoError(t, err)
	}

	f.pricing.setPrice("Rolex Submariner", 1200)
	f.pricing.setPrice("Gold ring", 1900)
	_, err := f.alerts.CheckAll(ctx)
	require.NoError(t, err)

	stats := f.alerts.Statistics()

	assert.Equal(t, 2, stats.TotalAlerts)
	assert.Equal(t, 2, stats.ActiveAlerts)
	assert.Equal(t, 1, stats.TriggeredAlerts)
	assert.InDelta(t, 7.5, stats.AveragePriceChange, 1e-9)
	assert.InDelta(t, 50.0, stats.TriggeredPercentage, 1e-9)
	assert.Equal(t, map[models.Category]int{models.CategoryWatches: 1, models.CategoryJewelry: 1}, stats.AlertsByCategory)
}

func TestAlertStatisticsEmpty(t *testing.T) {
	f := newAlertFixture(t)

	stats := f.alerts.Statistics()

	assert.Zero(t, stats.TotalAlerts)
	assert.Zero(t, stats.AveragePriceChange)
	assert.Zero(t, stats.TriggeredPercentage)
}

func TestSuggestions(t *testing.T) {
	f := newAlertFixture(t,
		models.Item{ID: "watched", ItemName: "Watched", MarketValue: ptr(9000.0)},
		models.Item{ID: "cheap-market", ItemName: "Cheap", PurchasePrice: 900, MarketValue: ptr(400.0)},
		models.Item{ID: "by-purchase", ItemName: "Guitar", PurchasePrice: 600},
		models.Item{ID: "top", ItemName: "Diamond", MarketValue: ptr(2000.0)},
		models.Item{ID: "sold", ItemName: "Sold", MarketValue: ptr(5000.0), Status: models.StatusSold},
	)
	_, err := f.alerts.Create(context.Background(), CreateAlertRequest{ItemID: "watched"})
	require.NoError(t, err)

	var ids []string
	for _, item := range f.alerts.Suggestions() {
		ids = append(ids, item.ID)
	}

	assert.Equal(t, []string{"top", "by-purchase"}, ids)
}
