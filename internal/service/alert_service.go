package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pawnshop-service/internal/alerting"
	"pawnshop-service/internal/models"
	"pawnshop-service/internal/store"
	"pawnshop-service/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// how long a delivered fire is remembered by the notification ledger
const notificationTTL = 7 * 24 * time.Hour

// suggestions only cover items worth more than this
const suggestionMinValue = 500.0

var validate = validator.New()

// CreateAlertRequest arms an alert for an item. Unset fields take defaults.
type CreateAlertRequest struct {
	ItemID           string   `json:"item_id" validate:"required"`
	PercentageChange *float64 `json:"percentage_change,omitempty" validate:"omitempty,gte=0,lte=1000"`
	TargetPrice      *float64 `json:"target_price,omitempty" validate:"omitempty,gt=0"`
	AlertOnIncrease  *bool    `json:"alert_on_increase,omitempty"`
	AlertOnDecrease  *bool    `json:"alert_on_decrease,omitempty"`
	UserID           string   `json:"user_id,omitempty" validate:"omitempty,max=128"`
	ShopID           string   `json:"shop_id,omitempty" validate:"omitempty,max=128"`
}

// UpdateAlertRequest changes an alert's trigger policy
type UpdateAlertRequest struct {
	PercentageChange *float64 `json:"percentage_change,omitempty" validate:"omitempty,gte=0,lte=1000"`
	TargetPrice      *float64 `json:"target_price,omitempty" validate:"omitempty,gt=0"`
	ClearTargetPrice bool     `json:"clear_target_price,omitempty"`
	AlertOnIncrease  *bool    `json:"alert_on_increase,omitempty"`
	AlertOnDecrease  *bool    `json:"alert_on_decrease,omitempty"`
}

// CheckSummary reports one pass over the armed alerts
type CheckSummary struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// AlertService owns the price alert collection and evaluates it against
// fresh market prices.
type AlertService struct {
	mu      sync.Mutex
	checkMu sync.Mutex
	alerts  []models.PriceAlert

	store            store.BlobStore
	inventory        *InventoryService
	pricing          PricingProvider
	notifier         Notifier
	ledger           NotificationLedger
	events           AlertEvents
	defaultThreshold float64
	logger           *zap.Logger
	now              func() time.Time
}

// NewAlertService creates a new alert service. ledger and events may be nil.
func NewAlertService(
	blobs store.BlobStore,
	inventory *InventoryService,
	pricing PricingProvider,
	notifier Notifier,
	ledger NotificationLedger,
	events AlertEvents,
	defaultThreshold float64,
) *AlertService {
	if defaultThreshold <= 0 {
		defaultThreshold = alerting.DefaultThreshold
	}
	return &AlertService{
		alerts:           []models.PriceAlert{},
		store:            blobs,
		inventory:        inventory,
		pricing:          pricing,
		notifier:         notifier,
		ledger:           ledger,
		events:           events,
		defaultThreshold: defaultThreshold,
		logger:           util.GetLogger(),
		now:              time.Now,
	}
}

// Load replaces the in-memory alerts with the persisted ones
func (s *AlertService) Load(ctx context.Context) error {
	var alerts []models.PriceAlert
	err := store.LoadJSON(ctx, s.store, store.KeyPriceAlerts, &alerts)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load price alerts: %w", err)
	}
	if alerts == nil {
		alerts = []models.PriceAlert{}
	}

	s.mu.Lock()
	s.alerts = alerts
	s.mu.Unlock()

	s.logger.Info("Price alerts loaded", zap.Int("alerts", len(alerts)))
	return nil
}

// commit persists next and swaps it in. Caller holds mu.
func (s *AlertService) commit(ctx context.Context, next []models.PriceAlert) error {
	if err := store.SaveJSON(ctx, s.store, store.KeyPriceAlerts, next); err != nil {
		return fmt.Errorf("failed to save price alerts: %w", err)
	}
	s.alerts = next
	return nil
}

func (s *AlertService) clone() []models.PriceAlert {
	out := make([]models.PriceAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

func (s *AlertService) indexOf(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *AlertService) hasAlertFor(itemID string) bool {
	for i := range s.alerts {
		if s.alerts[i].ItemID == itemID {
			return true
		}
	}
	return false
}

// List returns every alert
func (s *AlertService) List() []models.PriceAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone()
}

// Get returns one alert by id
func (s *AlertService) Get(id string) (models.PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.PriceAlert{}, ErrAlertNotFound
	}
	return s.alerts[i], nil
}

func (s *AlertService) newAlert(item *models.Item, req CreateAlertRequest) (models.PriceAlert, error) {
	// percentage moves are measured from the armed price, so it must be positive
	price, ok := item.CurrentPrice()
	if !ok || price <= 0 {
		return models.PriceAlert{}, ErrNoPrice
	}

	alert := models.PriceAlert{
		ID:               uuid.New().String(),
		ItemID:           item.ID,
		ItemName:         item.ItemName,
		Category:         item.Category,
		UserID:           req.UserID,
		ShopID:           req.ShopID,
		OriginalPrice:    price,
		CurrentPrice:     price,
		TargetPrice:      req.TargetPrice,
		PercentageChange: s.defaultThreshold,
		AlertOnIncrease:  true,
		AlertOnDecrease:  true,
		IsActive:         true,
		CreatedDate:      s.now(),
	}
	alert.ArmedDate = alert.CreatedDate
	if req.PercentageChange != nil {
		alert.PercentageChange = *req.PercentageChange
	}
	if req.AlertOnIncrease != nil {
		alert.AlertOnIncrease = *req.AlertOnIncrease
	}
	if req.AlertOnDecrease != nil {
		alert.AlertOnDecrease = *req.AlertOnDecrease
	}
	return alert, nil
}

// Create arms a new alert at the item's current price
func (s *AlertService) Create(ctx context.Context, req CreateAlertRequest) (models.PriceAlert, error) {
	ctx, span := util.StartSpan(ctx, "AlertService.Create", attribute.String("item_id", req.ItemID))
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return models.PriceAlert{}, fmt.Errorf("invalid alert request: %w", err)
	}

	item, err := s.inventory.Get(req.ItemID)
	if err != nil {
		return models.PriceAlert{}, err
	}
	alert, err := s.newAlert(&item, req)
	if err != nil {
		return models.PriceAlert{}, err
	}

	s.mu.Lock()
	err = s.commit(ctx, append(s.clone(), alert))
	s.mu.Unlock()
	if err != nil {
		util.RecordError(span, err)
		return models.PriceAlert{}, err
	}

	s.publishCreated(ctx, &alert)
	return alert, nil
}

func (s *AlertService) publishCreated(ctx context.Context, alert *models.PriceAlert) {
	if s.events == nil {
		return
	}
	event := &models.PriceAlertCreatedEvent{
		BaseEvent:        models.NewBaseEvent(models.EventTypePriceAlertCreated),
		AlertID:          alert.ID,
		ItemID:           alert.ItemID,
		OriginalPrice:    alert.OriginalPrice,
		PercentageChange: alert.PercentageChange,
	}
	if err := s.events.PublishPriceAlertCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish PriceAlertCreated event", zap.Error(err))
	}
}

// CreateForAllInventory arms an alert for every in-stock item that has a
// price and no alert yet. It returns the alerts created.
func (s *AlertService) CreateForAllInventory(ctx context.Context, threshold float64) ([]models.PriceAlert, error) {
	ctx, span := util.StartSpan(ctx, "AlertService.CreateForAllInventory")
	defer span.End()

	if threshold <= 0 {
		threshold = s.defaultThreshold
	}
	items := s.inventory.List(ItemFilter{Status: models.StatusInStock})

	s.mu.Lock()
	next := s.clone()
	var created []models.PriceAlert
	for i := range items {
		if s.hasAlertFor(items[i].ID) {
			continue
		}
		alert, err := s.newAlert(&items[i], CreateAlertRequest{PercentageChange: &threshold})
		if err != nil {
			continue
		}
		next = append(next, alert)
		created = append(created, alert)
	}
	var err error
	if len(created) > 0 {
		err = s.commit(ctx, next)
	}
	s.mu.Unlock()
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	for i := range created {
		s.publishCreated(ctx, &created[i])
	}
	s.logger.Info("Bulk alerts created", zap.Int("created", len(created)), zap.Int("in_stock", len(items)))
	return created, nil
}

// mutate applies fn to one alert and persists the result
func (s *AlertService) mutate(ctx context.Context, id string, fn func(*models.PriceAlert)) (models.PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.PriceAlert{}, ErrAlertNotFound
	}
	next := s.clone()
	fn(&next[i])
	if err := s.commit(ctx, next); err != nil {
		return models.PriceAlert{}, err
	}
	return next[i], nil
}

// Update changes an alert's trigger policy
func (s *AlertService) Update(ctx context.Context, id string, req UpdateAlertRequest) (models.PriceAlert, error) {
	if err := validate.Struct(req); err != nil {
		return models.PriceAlert{}, fmt.Errorf("invalid alert request: %w", err)
	}
	return s.mutate(ctx, id, func(a *models.PriceAlert) {
		if req.PercentageChange != nil {
			a.PercentageChange = *req.PercentageChange
		}
		if req.ClearTargetPrice {
			a.TargetPrice = nil
		} else if req.TargetPrice != nil {
			a.TargetPrice = req.TargetPrice
		}
		if req.AlertOnIncrease != nil {
			a.AlertOnIncrease = *req.AlertOnIncrease
		}
		if req.AlertOnDecrease != nil {
			a.AlertOnDecrease = *req.AlertOnDecrease
		}
	})
}

// Toggle flips an alert between active and inactive
func (s *AlertService) Toggle(ctx context.Context, id string) (models.PriceAlert, error) {
	return s.mutate(ctx, id, alerting.Toggle)
}

// Reset re-arms a fired alert around its current price
func (s *AlertService) Reset(ctx context.Context, id string) (models.PriceAlert, error) {
	return s.mutate(ctx, id, func(a *models.PriceAlert) {
		alerting.Reset(a, s.now())
	})
}

// Delete removes one alert
func (s *AlertService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrAlertNotFound
	}
	next := make([]models.PriceAlert, 0, len(s.alerts)-1)
	next = append(next, s.alerts[:i]...)
	next = append(next, s.alerts[i+1:]...)
	return s.commit(ctx, next)
}

// ClearTriggered removes every fired alert and reports how many were removed
func (s *AlertService) ClearTriggered(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.PriceAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if !a.NotificationSent {
			next = append(next, a)
		}
	}
	removed := len(s.alerts) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}
	return removed, nil
}

// Statistics summarizes the alerts. The average price change counts each
// item name once, using the last alert listed for it.
func (s *AlertService) Statistics() models.AlertStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.AlertStatistics{
		TotalAlerts:      len(s.alerts),
		AlertsByCategory: make(map[models.Category]int),
	}
	changes := make(map[string]float64)
	for i := range s.alerts {
		a := &s.alerts[i]
		if a.IsActive {
			stats.ActiveAlerts++
		}
		if a.NotificationSent {
			stats.TriggeredAlerts++
		}
		stats.AlertsByCategory[a.Category]++
		changes[a.ItemName] = alerting.PriceChange(a)
	}

	if len(changes) > 0 {
		var sum float64
		for _, c := range changes {
			sum += c
		}
		stats.AveragePriceChange = sum / float64(len(changes))
	}
	if stats.TotalAlerts > 0 {
		stats.TriggeredPercentage = float64(stats.TriggeredAlerts) / float64(stats.TotalAlerts) * 100
	}
	return stats
}

// Suggestions lists in-stock items worth watching that have no alert yet,
// most valuable first. Value is the market value, else the purchase price.
func (s *AlertService) Suggestions() []models.Item {
	items := s.inventory.List(ItemFilter{Status: models.StatusInStock})

	s.mu.Lock()
	out := make([]models.Item, 0)
	for _, item := range items {
		if itemValue(&item) > suggestionMinValue && !s.hasAlertFor(item.ID) {
			out = append(out, item)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return itemValue(&out[i]) > itemValue(&out[j])
	})
	return out
}

func itemValue(item *models.Item) float64 {
	if item.MarketValue != nil {
		return *item.MarketValue
	}
	return item.PurchasePrice
}

// CheckAll re-prices every armed alert in turn, fires those whose policy
// is crossed and saves the collection once. A failure on one alert is
// logged and does not stop the others.
func (s *AlertService) CheckAll(ctx context.Context) (CheckSummary, error) {
	ctx, span := util.StartSpan(ctx, "AlertService.CheckAll")
	defer span.End()

	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	var armed []models.PriceAlert
	for _, a := range s.List() {
		if alerting.State(&a) == models.AlertStateArmed {
			armed = append(armed, a)
		}
	}
	s.logger.Info("Checking price alerts", zap.Int("armed", len(armed)))

	var summary CheckSummary
	checked := make([]models.PriceAlert, 0, len(armed))
	for i := range armed {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Alert check cancelled", zap.Int("remaining", len(armed)-i))
			break
		}

		alert := armed[i]
		outcome := s.checkAlert(ctx, &alert)
		util.AlertChecksTotal.WithLabelValues(outcome).Inc()

		switch outcome {
		case "skipped":
			summary.Skipped++
			continue
		case "failed":
			summary.Failed++
			continue
		case "triggered":
			summary.Triggered++
		}
		summary.Checked++
		checked = append(checked, alert)
	}

	if len(checked) == 0 {
		return summary, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	for _, c := range checked {
		i := s.indexOf(c.ID)
		if i < 0 {
			continue
		}
		next[i].CurrentPrice = c.CurrentPrice
		next[i].LastCheckedDate = c.LastCheckedDate
		next[i].TriggeredDate = c.TriggeredDate
		next[i].NotificationSent = c.NotificationSent
	}
	if err := s.commit(context.WithoutCancel(ctx), next); err != nil {
		util.RecordError(span, err)
		return summary, err
	}
	return summary, nil
}

// checkAlert re-prices one alert in place and reports the outcome label
func (s *AlertService) checkAlert(ctx context.Context, alert *models.PriceAlert) string {
	ctx, span := util.StartSpan(ctx, "AlertService.checkAlert", attribute.String("alert_id", alert.ID))
	defer span.End()

	item, err := s.inventory.Get(alert.ItemID)
	if err != nil {
		s.logger.Debug("Alert item no longer in inventory", zap.String("alert_id", alert.ID))
		return "skipped"
	}

	result, err := s.pricing.Price(ctx, item.PricingQuery(), item.Category)
	if err != nil {
		util.RecordError(span, err)
		s.logger.Error("Price alert check failed",
			zap.String("alert_id", alert.ID),
			zap.String("item_name", alert.ItemName),
			zap.Error(err))
		return "failed"
	}
	if result.AveragePrice == nil {
		return "skipped"
	}

	now := s.now()
	alerting.Observe(alert, *result.AveragePrice, now)
	if !alerting.ShouldTrigger(alert) {
		return "checked"
	}

	alerting.Fire(alert, now)
	direction := "decrease"
	if alert.CurrentPrice > alert.OriginalPrice {
		direction = "increase"
	}
	util.AlertsTriggeredTotal.WithLabelValues(direction).Inc()

	s.logger.Info("Price alert triggered",
		zap.String("alert_id", alert.ID),
		zap.String("item_name", alert.ItemName),
		zap.Float64("original_price", alert.OriginalPrice),
		zap.Float64("current_price", alert.CurrentPrice))

	s.deliver(ctx, alert, alerting.BuildNotification(alert, now))

	price := alert.CurrentPrice
	item.EbayAveragePrice = &price
	marketValue := price
	item.MarketValue = &marketValue
	item.LastPriceUpdate = &now
	if _, err := s.inventory.Update(ctx, item); err != nil {
		s.logger.Error("Failed to update item price", zap.String("item_id", item.ID), zap.Error(err))
	}
	return "triggered"
}

// deliver sends note at most once per arming of alert, so a fire that is
// retried after a failed save is not sent again.
func (s *AlertService) deliver(ctx context.Context, alert *models.PriceAlert, note models.Notification) {
	if s.ledger != nil {
		first, err := s.ledger.MarkNotified(ctx, alert.ID, alerting.ArmedSince(alert), notificationTTL)
		if err != nil {
			s.logger.Warn("Notification ledger unavailable", zap.Error(err))
		} else if !first {
			s.logger.Info("Notification already delivered", zap.String("alert_id", note.AlertID))
			return
		}
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error("Failed to deliver notification", zap.String("alert_id", note.AlertID), zap.Error(err))
	}
}

// RecommendedThreshold suggests a threshold for the category
func (s *AlertService) RecommendedThreshold(c models.Category) float64 {
	return alerting.RecommendedThreshold(c)
}
