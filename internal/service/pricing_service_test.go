package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pawnshop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string]models.PricingResult
	ttls    []time.Duration
	readErr error
}

func (c *memoryCache) GetPricing(_ context.Context, query string, category models.Category) (models.PricingResult, bool, error) {
	if c.readErr != nil {
		return models.PricingResult{}, false, c.readErr
	}
	r, ok := c.entries[string(category)+"|"+query]
	return r, ok, nil
}

func (c *memoryCache) SetPricing(_ context.Context, query string, category models.Category, result models.PricingResult, ttl time.Duration) error {
	if c.entries == nil {
		c.entries = map[string]models.PricingResult{}
	}
	c.entries[string(category)+"|"+query] = result
	c.ttls = append(c.ttls, ttl)
	return nil
}

func TestPriceServedFromCache(t *testing.T) {
	provider := &fakePricing{prices: map[string]float64{"ps5": 420}}
	cache := &memoryCache{}
	s := NewPricingService(provider, cache, time.Hour)
	ctx := context.Background()

	first, err := s.Price(ctx, "ps5", models.CategoryGaming)
	require.NoError(t, err)
	second, err := s.Price(ctx, "ps5", models.CategoryGaming)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, provider.queries, 1)
	assert.Equal(t, []time.Duration{time.Hour}, cache.ttls)
}

func TestPriceFallsThroughBrokenCache(t *testing.T) {
	provider := &fakePricing{prices: map[string]float64{"ps5": 420}}
	s := NewPricingService(provider, &memoryCache{readErr: errors.New("redis down")}, time.Hour)

	result, err := s.Price(context.Background(), "ps5", models.CategoryGaming)

	require.NoError(t, err)
	require.NotNil(t, result.AveragePrice)
	assert.Equal(t, 420.0, *result.AveragePrice)
}

func TestPriceProviderErrorNotCached(t *testing.T) {
	provider := &fakePricing{fail: map[string]error{"ps5": errors.New("quota")}}
	cache := &memoryCache{}
	s := NewPricingService(provider, cache, time.Hour)

	_, err := s.Price(context.Background(), "ps5", models.CategoryGaming)

	assert.Error(t, err)
	assert.Empty(t, cache.entries)
}

func TestReportAddsRange(t *testing.T) {
	s := NewPricingService(&fakePricing{prices: map[string]float64{"ring": 250}}, nil, 0)

	report, err := s.Report(context.Background(), "ring", models.CategoryJewelry)

	require.NoError(t, err)
	assert.Equal(t, "ring", report.Query)
	require.NotNil(t, report.Range)
	assert.Equal(t, models.PriceRange{Min: 250, Max: 250}, *report.Range)
}

func TestTrendWithoutSalesIsStable(t *testing.T) {
	s := NewPricingService(&fakePricing{}, nil, 0)

	trend, err := s.Trend(context.Background(), "unknown", models.CategoryOther)

	require.NoError(t, err)
	assert.Equal(t, models.TrendStable, trend.Direction)
}

func TestRefreshBypassesCacheAndStoresResult(t *testing.T) {
	provider := &fakePricing{prices: map[string]float64{"ps5": 420}}
	cache := &memoryCache{}
	s := NewPricingService(provider, cache, time.Hour)
	ctx := context.Background()

	_, err := s.Price(ctx, "ps5", models.CategoryGaming)
	require.NoError(t, err)
	provider.setPrice("ps5", 380)

	stale, err := s.Price(ctx, "ps5", models.CategoryGaming)
	require.NoError(t, err)
	assert.Equal(t, 420.0, *stale.AveragePrice)

	fresh, err := s.Live().Price(ctx, "ps5", models.CategoryGaming)
	require.NoError(t, err)
	assert.Equal(t, 380.0, *fresh.AveragePrice)

	cached, err := s.Price(ctx, "ps5", models.CategoryGaming)
	require.NoError(t, err)
	assert.Equal(t, 380.0, *cached.AveragePrice)
	assert.Len(t, provider.queries, 2)
}
