package models

import "time"

// PriceAlert watches one item for a significant price move.
// Once NotificationSent is set the alert stays fired until it is reset.
type PriceAlert struct {
	ID               string     `json:"id"`
	ItemID           string     `json:"item_id"`
	ItemName         string     `json:"item_name"`
	Category         Category   `json:"category"`
	UserID           string     `json:"user_id,omitempty"`
	ShopID           string     `json:"shop_id,omitempty"`
	OriginalPrice    float64    `json:"original_price"`
	CurrentPrice     float64    `json:"current_price"`
	TargetPrice      *float64   `json:"target_price,omitempty"`
	PercentageChange float64    `json:"percentage_change"`
	AlertOnIncrease  bool       `json:"alert_on_increase"`
	AlertOnDecrease  bool       `json:"alert_on_decrease"`
	IsActive         bool       `json:"is_active"`
	CreatedDate      time.Time  `json:"created_date"`
	ArmedDate        time.Time  `json:"armed_date"`
	LastCheckedDate  *time.Time `json:"last_checked_date,omitempty"`
	TriggeredDate    *time.Time `json:"triggered_date,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
}

// Alert states
const (
	AlertStateArmed    = "ARMED"
	AlertStateFired    = "FIRED"
	AlertStateInactive = "INACTIVE"
)

// Notification is the user-facing payload emitted when an alert fires
type Notification struct {
	AlertID       string    `json:"alert_id"`
	ItemID        string    `json:"item_id"`
	ItemName      string    `json:"item_name"`
	UserID        string    `json:"user_id,omitempty"`
	ShopID        string    `json:"shop_id,omitempty"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	OriginalPrice float64   `json:"original_price"`
	CurrentPrice  float64   `json:"current_price"`
	ChangePercent float64   `json:"change_percent"`
	SentAt        time.Time `json:"sent_at"`
}

// AlertStatistics summarizes the alert collection
type AlertStatistics struct {
	TotalAlerts         int              `json:"total_alerts"`
	ActiveAlerts        int              `json:"active_alerts"`
	TriggeredAlerts     int              `json:"triggered_alerts"`
	AlertsByCategory    map[Category]int `json:"alerts_by_category"`
	AveragePriceChange  float64          `json:"average_price_change"`
	TriggeredPercentage float64          `json:"triggered_percentage"`
}

// CategoryStats is the in-stock count and value for one category
type CategoryStats struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// InventoryStatistics summarizes the item collection
type InventoryStatistics struct {
	TotalItems          int                        `json:"total_items"`
	TotalInventoryValue float64                    `json:"total_inventory_value"`
	TotalProfit         float64                    `json:"total_profit"`
	AverageProfitMargin float64                    `json:"average_profit_margin"`
	ByCategory          map[Category]CategoryStats `json:"by_category"`
}
