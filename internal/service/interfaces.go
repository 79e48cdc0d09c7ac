package service

import (
	"context"
	"errors"
	"time"

	"pawnshop-service/internal/models"
)

var (
	ErrItemNotFound  = errors.New("item not found")
	ErrAlertNotFound = errors.New("price alert not found")
	ErrNoPrice       = errors.New("item has no market value or comparable price")
)

// Analyzer produces free-form appraisal text for a prompt
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, onPartial func(string)) (string, error)
}

// PricingProvider looks up comparable sales for a query
type PricingProvider interface {
	Price(ctx context.Context, query string, category models.Category) (models.PricingResult, error)
}

// PricingCache stores pricing results between lookups
type PricingCache interface {
	GetPricing(ctx context.Context, query string, category models.Category) (models.PricingResult, bool, error)
	SetPricing(ctx context.Context, query string, category models.Category, result models.PricingResult, ttl time.Duration) error
}

// Notifier delivers fired alert notifications
type Notifier interface {
	Notify(ctx context.Context, note models.Notification) error
}

// NotificationLedger records delivered notifications so each arming of an
// alert notifies once
type NotificationLedger interface {
	MarkNotified(ctx context.Context, alertID string, armedAt time.Time, ttl time.Duration) (bool, error)
}

// InventoryEvents publishes inventory events
type InventoryEvents interface {
	PublishItemsImported(ctx context.Context, event *models.ItemsImportedEvent) error
}

// EnrichmentEvents publishes batch outcome events
type EnrichmentEvents interface {
	PublishItemEnriched(ctx context.Context, event *models.ItemEnrichedEvent) error
	PublishItemEnrichmentFailed(ctx context.Context, event *models.ItemEnrichmentFailedEvent) error
	PublishBatchCompleted(ctx context.Context, event *models.BatchCompletedEvent) error
}

// AlertEvents publishes alert lifecycle events
type AlertEvents interface {
	PublishPriceAlertCreated(ctx context.Context, event *models.PriceAlertCreatedEvent) error
}
