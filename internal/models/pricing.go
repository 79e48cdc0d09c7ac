package models

import "time"

// SaleObservation is one comparable marketplace sale
type SaleObservation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	SaleDate  time.Time `json:"sale_date"`
	Condition string    `json:"condition,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// ConfidenceLevel buckets the number of comparable sales
type ConfidenceLevel string

const (
	ConfidenceNone     ConfidenceLevel = "No Data"
	ConfidenceLow      ConfidenceLevel = "Low Confidence"
	ConfidenceMedium   ConfidenceLevel = "Medium Confidence"
	ConfidenceHigh     ConfidenceLevel = "High Confidence"
	ConfidenceVeryHigh ConfidenceLevel = "Very High Confidence"
)

// TrendDirection classifies the movement of weekly prices
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "Increasing"
	TrendDecreasing TrendDirection = "Decreasing"
	TrendStable     TrendDirection = "Stable"
)

// PricingResult is the aggregated outcome of a pricing lookup.
// Sales are most-recent-first and capped; Count is the number of sales observed.
type PricingResult struct {
	AveragePrice *float64          `json:"average_price,omitempty"`
	Sales        []SaleObservation `json:"sales"`
	Count        int               `json:"count"`
	Confidence   ConfidenceLevel   `json:"confidence"`
	Simulated    bool              `json:"simulated,omitempty"`
}

// PriceRange is the min/max over observed prices
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PriceTrend summarizes weekly price movement for a query
type PriceTrend struct {
	WeeklyPrices     map[time.Time]float64 `json:"weekly_prices"`
	Direction        TrendDirection        `json:"direction"`
	CurrentAverage   float64               `json:"current_average"`
	ChangePercentage float64               `json:"change_percentage"`
}
