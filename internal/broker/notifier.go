package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/util"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NotificationSubjectPrefix prefixes per-shop NATS subjects
const NotificationSubjectPrefix = "pawnshop.alerts"

// LogNotifier writes notifications to the log only
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, note models.Notification) error {
	n.logger.Info("Price alert notification",
		zap.String("alert_id", note.AlertID),
		zap.String("title", note.Title),
		zap.String("body", note.Body))
	return nil
}

// KafkaNotifier publishes notifications as PriceAlertTriggered events
type KafkaNotifier struct {
	publisher *EventPublisher
}

// NewKafkaNotifier creates a new Kafka notifier
func NewKafkaNotifier(publisher *EventPublisher) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher}
}

// Notify publishes the notification
func (n *KafkaNotifier) Notify(ctx context.Context, note models.Notification) error {
	return n.publisher.PublishPriceAlertTriggered(ctx, &models.PriceAlertTriggeredEvent{
		BaseEvent:    models.NewBaseEvent(models.EventTypePriceAlertTriggered),
		Notification: note,
	})
}

// NATSNotifier pushes notifications to subscribers on NATS
type NATSNotifier struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATSNotifier connects to the NATS server
func NewNATSNotifier(url string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("pawnshop-service"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{conn: conn, logger: util.GetLogger()}, nil
}

// Subject is the NATS subject a notification is delivered on
func Subject(note models.Notification) string {
	shop := note.ShopID
	if shop == "" {
		shop = "default"
	}
	return fmt.Sprintf("%s.%s", NotificationSubjectPrefix, shop)
}

// Notify publishes the notification on the shop's subject
func (n *NATSNotifier) Notify(_ context.Context, note models.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	subject := Subject(note)
	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	n.logger.Debug("Published notification", zap.String("subject", subject), zap.String("alert_id", note.AlertID))
	return nil
}

// Close drains and closes the connection
func (n *NATSNotifier) Close() error {
	return n.conn.Drain()
}
