package ebay

import (
	"testing"
	"time"

	"pawnshop-service/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasePrice(t *testing.T) {
	cases := map[string]float64{
		"Apple iPhone 15 Pro":        750,
		"iphone 13":                  550,
		"iPhone 11":                  350,
		"iPhone SE":                  250,
		"iPad Pro 12.9":              600,
		"iPad Air":                   400,
		"MacBook Pro 14":             1200,
		"Xbox Series X":              450,
		"PlayStation 4":              300,
		"Nintendo Switch OLED":       250,
		"Nintendo 3DS":               150,
		"Rolex Daytona":              12000,
		"Rolex Datejust 36":          8000,
		"Rolex Oyster":               6000,
		"Omega Seamaster":            3500,
		"TAG Heuer Carrera":          2500,
		"Apple Watch Ultra 2":        600,
		"Apple Watch Series 9":       300,
		"14k gold chain":             800,
		"gold ring":                  600,
		"Diamond Ring 1ct":           1500,
		"DeWalt 20V drill":           150,
		"Milwaukee circular saw":     200,
		"Fender Stratocaster guitar": 1200,
		"Yamaha keyboard":            800,
		"bicycle":                    150,
	}

	for query, want := range cases {
		assert.Equal(t, want, BasePrice(query), query)
	}
}

func TestSimulatorPrice(t *testing.T) {
	now := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	sim := NewSimulator(7)
	sim.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		result := sim.Price("Omega Seamaster")

		assert.True(t, result.Simulated)
		assert.GreaterOrEqual(t, result.Count, 5)
		assert.LessOrEqual(t, result.Count, 25)
		assert.Len(t, result.Sales, min(result.Count, pricing.MaxRecentSales))
		assert.Equal(t, pricing.ConfidenceFor(result.Count), result.Confidence)
		require.NotNil(t, result.AveragePrice)

		for _, s := range result.Sales {
			assert.GreaterOrEqual(t, s.Price, 3500*0.85)
			assert.LessOrEqual(t, s.Price, 3500*1.15)
			age := now.Sub(s.SaleDate)
			assert.GreaterOrEqual(t, age, 24*time.Hour)
			assert.LessOrEqual(t, age, 30*24*time.Hour)
			assert.Contains(t, simulatedConditions, s.Condition)
		}
	}
}
