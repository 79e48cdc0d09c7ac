package pricing

import (
	"sort"
	"time"

	"pawnshop-service/internal/models"
)

// MaxRecentSales caps the comparable sales kept on a result
const MaxRecentSales = 10

// trendThreshold is the half-over-half change, in percent, that counts as movement
const trendThreshold = 5.0

// Aggregate summarizes comparable sales: the average covers every sale,
// while only the most recent MaxRecentSales are retained.
func Aggregate(sales []models.SaleObservation) models.PricingResult {
	recent := make([]models.SaleObservation, len(sales))
	copy(recent, sales)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].SaleDate.After(recent[j].SaleDate)
	})
	if len(recent) > MaxRecentSales {
		recent = recent[:MaxRecentSales]
	}

	return models.PricingResult{
		AveragePrice: Average(sales),
		Sales:        recent,
		Count:        len(sales),
		Confidence:   ConfidenceFor(len(sales)),
	}
}

// Average is the arithmetic mean of all sale prices, nil when there are none
func Average(sales []models.SaleObservation) *float64 {
	if len(sales) == 0 {
		return nil
	}
	var sum float64
	for _, s := range sales {
		sum += s.Price
	}
	avg := sum / float64(len(sales))
	return &avg
}

// ConfidenceFor buckets a comparable-sale count
func ConfidenceFor(count int) models.ConfidenceLevel {
	switch {
	case count <= 0:
		return models.ConfidenceNone
	case count <= 5:
		return models.ConfidenceLow
	case count <= 15:
		return models.ConfidenceMedium
	case count <= 50:
		return models.ConfidenceHigh
	default:
		return models.ConfidenceVeryHigh
	}
}

// Range returns the lowest and highest sale price, nil when there are none
func Range(sales []models.SaleObservation) *models.PriceRange {
	if len(sales) == 0 {
		return nil
	}
	r := &models.PriceRange{Min: sales[0].Price, Max: sales[0].Price}
	for _, s := range sales[1:] {
		if s.Price < r.Min {
			r.Min = s.Price
		}
		if s.Price > r.Max {
			r.Max = s.Price
		}
	}
	return r
}

// WeekStart returns Monday 00:00 UTC of the ISO week containing t
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeeklyPrices buckets sales by week. A later sale in an already seen
// week is averaged with the bucket's current value, so the bucket is a
// running pairwise average that depends on input order, not a mean.
func WeeklyPrices(sales []models.SaleObservation) map[time.Time]float64 {
	weekly := make(map[time.Time]float64)
	for _, s := range sales {
		week := WeekStart(s.SaleDate)
		if prev, ok := weekly[week]; ok {
			weekly[week] = (prev + s.Price) / 2
		} else {
			weekly[week] = s.Price
		}
	}
	return weekly
}

// Chronological returns weekly prices ordered by week
func Chronological(weekly map[time.Time]float64) []float64 {
	weeks := make([]time.Time, 0, len(weekly))
	for w := range weekly {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	prices := make([]float64, len(weeks))
	for i, w := range weeks {
		prices[i] = weekly[w]
	}
	return prices
}

// Direction compares the mean of the earlier half of the weekly series to
// the later half. With an odd count the middle week is left out.
func Direction(prices []float64) models.TrendDirection {
	if len(prices) < 2 {
		return models.TrendStable
	}

	half := len(prices) / 2
	first := mean(prices[:half])
	last := mean(prices[len(prices)-half:])
	if first == 0 {
		return models.TrendStable
	}

	change := (last - first) / first * 100
	switch {
	case change > trendThreshold:
		return models.TrendIncreasing
	case change < -trendThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// ChangePercentage is the spread between the lowest and highest weekly
// price relative to the lowest
func ChangePercentage(weekly map[time.Time]float64) float64 {
	if len(weekly) < 2 {
		return 0
	}
	values := make([]float64, 0, len(weekly))
	for _, v := range weekly {
		values = append(values, v)
	}
	sort.Float64s(values)

	lowest, highest := values[0], values[len(values)-1]
	if lowest == 0 {
		return 0
	}
	return (highest - lowest) / lowest * 100
}

// Trend builds the weekly trend report for a pricing result
func Trend(result models.PricingResult) models.PriceTrend {
	weekly := WeeklyPrices(result.Sales)

	trend := models.PriceTrend{
		WeeklyPrices:     weekly,
		Direction:        Direction(Chronological(weekly)),
		ChangePercentage: ChangePercentage(weekly),
	}
	if result.AveragePrice != nil {
		trend.CurrentAverage = *result.AveragePrice
	}
	return trend
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
