package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeItemsImported        = "ITEMS_IMPORTED"
	EventTypeEnrichmentRequested  = "ENRICHMENT_REQUESTED"
	EventTypeItemEnriched         = "ITEM_ENRICHED"
	EventTypeItemEnrichmentFailed = "ITEM_ENRICHMENT_FAILED"
	EventTypeBatchCompleted       = "BATCH_COMPLETED"
	EventTypePriceAlertCreated    = "PRICE_ALERT_CREATED"
	EventTypePriceAlertTriggered  = "PRICE_ALERT_TRIGGERED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event of the given type
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// ItemsImportedEvent published after a CSV import lands in inventory
type ItemsImportedEvent struct {
	BaseEvent
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// EnrichmentRequestedEvent asks the enrichment worker to run a batch.
// An empty ItemIDs list means every in-stock item.
type EnrichmentRequestedEvent struct {
	BaseEvent
	BatchID string   `json:"batch_id"`
	ItemIDs []string `json:"item_ids,omitempty"`
}

// ItemEnrichedEvent published when one item finished enrichment
type ItemEnrichedEvent struct {
	BaseEvent
	BatchID     string   `json:"batch_id"`
	ItemID      string   `json:"item_id"`
	ItemName    string   `json:"item_name"`
	MarketValue *float64 `json:"market_value,omitempty"`
}

// ItemEnrichmentFailedEvent published when a provider call failed for an item
type ItemEnrichmentFailedEvent struct {
	BaseEvent
	BatchID  string `json:"batch_id"`
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Reason   string `json:"reason"`
}

// BatchCompletedEvent published after the last item of a batch
type BatchCompletedEvent struct {
	BaseEvent
	BatchID   string `json:"batch_id"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// PriceAlertCreatedEvent published when an alert is armed for an item
type PriceAlertCreatedEvent struct {
	BaseEvent
	AlertID          string  `json:"alert_id"`
	ItemID           string  `json:"item_id"`
	OriginalPrice    float64 `json:"original_price"`
	PercentageChange float64 `json:"percentage_change"`
}

// PriceAlertTriggeredEvent carries the notification of a fired alert
type PriceAlertTriggeredEvent struct {
	BaseEvent
	Notification
}
