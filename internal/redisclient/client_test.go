package redisclient

import (
	"context"
	"testing"
	"time"

	"pawnshop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingKey(t *testing.T) {
	assert.Equal(t, "pricing:watches:rolex submariner",
		PricingKey("  Rolex   Submariner ", models.CategoryWatches))
	assert.Equal(t, PricingKey("iphone 15", models.CategoryElectronics),
		PricingKey("iPhone 15", models.CategoryElectronics))
	assert.NotEqual(t, PricingKey("gold", models.CategoryJewelry),
		PricingKey("gold", models.CategoryOther))
}

func TestLock(t *testing.T) {
	t.Skip("Integration test - requires redis")

	c, err := NewClient("localhost:6379", "", 15)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	token, ok, err := c.AcquireLock(ctx, "test-monitor", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.AcquireLock(ctx, "test-monitor", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire")

	require.NoError(t, c.ReleaseLock(ctx, "test-monitor", "someone-else"))
	_, ok, _ = c.AcquireLock(ctx, "test-monitor", time.Minute)
	assert.False(t, ok, "foreign token must not release")

	extended, err := c.ExtendLock(ctx, "test-monitor", token, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, extended)

	require.NoError(t, c.ReleaseLock(ctx, "test-monitor", token))
	_, ok, _ = c.AcquireLock(ctx, "test-monitor", time.Minute)
	assert.True(t, ok)
}

func TestPricingCache(t *testing.T) {
	t.Skip("Integration test - requires redis")

	c, err := NewClient("localhost:6379", "", 15)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	avg := 500.0
	in := models.PricingResult{AveragePrice: &avg, Count: 3, Confidence: models.ConfidenceLow}

	require.NoError(t, c.SetPricing(ctx, "omega", models.CategoryWatches, in, time.Minute))

	out, ok, err := c.GetPricing(ctx, "omega", models.CategoryWatches)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, out.Count)

	first, err := c.MarkNotified(ctx, "alert-1", time.Unix(100, 0), time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	again, err := c.MarkNotified(ctx, "alert-1", time.Unix(100, 0), time.Minute)
	require.NoError(t, err)
	assert.False(t, again)
}
