package alerting

import (
	"fmt"
	"math"
	"time"

	"pawnshop-service/internal/models"
)

// DefaultThreshold is the percentage move that fires a new alert
const DefaultThreshold = 10.0

// State returns the lifecycle state of an alert
func State(a *models.PriceAlert) string {
	switch {
	case !a.IsActive:
		return models.AlertStateInactive
	case a.NotificationSent:
		return models.AlertStateFired
	default:
		return models.AlertStateArmed
	}
}

// PriceChange is the signed move from the original price, in percent
func PriceChange(a *models.PriceAlert) float64 {
	if a.OriginalPrice == 0 {
		return 0
	}
	return (a.CurrentPrice - a.OriginalPrice) / a.OriginalPrice * 100
}

// ShouldTrigger reports whether an armed alert's current price crosses its
// policy. Fired and inactive alerts never trigger.
func ShouldTrigger(a *models.PriceAlert) bool {
	if State(a) != models.AlertStateArmed {
		return false
	}

	change := math.Abs(PriceChange(a))
	increasing := a.CurrentPrice > a.OriginalPrice

	if increasing && a.AlertOnIncrease && change >= a.PercentageChange {
		return true
	}
	if !increasing && a.AlertOnDecrease && change >= a.PercentageChange {
		return true
	}
	if a.TargetPrice != nil {
		if a.AlertOnIncrease && a.CurrentPrice >= *a.TargetPrice {
			return true
		}
		if a.AlertOnDecrease && a.CurrentPrice <= *a.TargetPrice {
			return true
		}
	}
	return false
}

// Observe records a fresh price check on the alert
func Observe(a *models.PriceAlert, price float64, at time.Time) {
	a.CurrentPrice = price
	a.LastCheckedDate = &at
}

// Fire moves an armed alert to fired
func Fire(a *models.PriceAlert, at time.Time) {
	a.TriggeredDate = &at
	a.NotificationSent = true
}

// Reset re-arms a fired alert around its current price
func Reset(a *models.PriceAlert, at time.Time) {
	a.OriginalPrice = a.CurrentPrice
	a.NotificationSent = false
	a.TriggeredDate = nil
	a.ArmedDate = at
}

// ArmedSince is when the alert was last armed. Alerts saved before arming
// was recorded count from their creation.
func ArmedSince(a *models.PriceAlert) time.Time {
	if a.ArmedDate.IsZero() {
		return a.CreatedDate
	}
	return a.ArmedDate
}

// Toggle flips the active flag
func Toggle(a *models.PriceAlert) {
	a.IsActive = !a.IsActive
}

// BuildNotification renders the user-facing payload for a fired alert
func BuildNotification(a *models.PriceAlert, at time.Time) models.Notification {
	change := PriceChange(a)

	n := models.Notification{
		AlertID:       a.ID,
		ItemID:        a.ItemID,
		ItemName:      a.ItemName,
		UserID:        a.UserID,
		ShopID:        a.ShopID,
		OriginalPrice: a.OriginalPrice,
		CurrentPrice:  a.CurrentPrice,
		ChangePercent: change,
		SentAt:        at,
	}

	if a.CurrentPrice > a.OriginalPrice {
		n.Title = "Price Increased: " + a.ItemName
		n.Body = fmt.Sprintf("$%.2f → $%.2f (+%.1f%%) - Good time to sell!",
			a.OriginalPrice, a.CurrentPrice, math.Abs(change))
	} else {
		n.Title = "Price Decreased: " + a.ItemName
		n.Body = fmt.Sprintf("$%.2f → $%.2f (-%.1f%%) - Market softening",
			a.OriginalPrice, a.CurrentPrice, math.Abs(change))
	}
	return n
}

// RecommendedThreshold suggests a percentage threshold for a category
func RecommendedThreshold(c models.Category) float64 {
	switch c {
	case models.CategoryElectronics:
		return 8
	case models.CategoryWatches, models.CategoryJewelry:
		return 5
	case models.CategoryCollectibles:
		return 15
	case models.CategoryVehicles:
		return 10
	default:
		return DefaultThreshold
	}
}
