package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
)

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "charge.success"
	PaymentEventFailed    PaymentEventType = "charge.failed"
)

// PaymentEvent is a provider webhook relayed onto the payments topic.
type PaymentEvent struct {
	ID        string           `json:"id"`
	Type      PaymentEventType `json:"type"`
	Provider  string           `json:"provider"`
	Reference string           `json:"reference"`
	UserID    string           `json:"user_id"`
	Timestamp time.Time        `json:"timestamp"`
}

// PaymentConfirmer turns a verified payment reference into a paid order.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, userID, reference string) (*models.Order, error)
}

// PaymentConsumer consumes payment events from Kafka.
type PaymentConsumer struct {
	reader    MessageReader
	confirmer PaymentConfirmer
	logger    *logging.Logger
	stopCh    chan struct{}
}

// NewKafkaPaymentConsumer creates a consumer on the payments topic.
func NewKafkaPaymentConsumer(cfg config.KafkaConfig, confirmer PaymentConfirmer, logger *logging.Logger) *PaymentConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return NewPaymentConsumer(reader, confirmer, logger)
}

// NewPaymentConsumer wraps an existing reader.
func NewPaymentConsumer(reader MessageReader, confirmer PaymentConfirmer, logger *logging.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		reader:    reader,
		confirmer: confirmer,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start begins consuming events.
func (c *PaymentConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting payment consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Payment consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *PaymentConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *PaymentConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	switch event.Type {
	case PaymentEventSucceeded:
		c.handlePaymentSucceeded(ctx, &event)
	case PaymentEventFailed:
		c.logger.Info("Payment failed, no order created", logging.Fields{
			"reference": event.Reference,
			"user_id":   event.UserID,
		})
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
	}
}

func (c *PaymentConsumer) handlePaymentSucceeded(ctx context.Context, event *PaymentEvent) {
	c.logger.Info("Handling payment succeeded event", logging.Fields{
		"reference": event.Reference,
		"user_id":   event.UserID,
		"provider":  event.Provider,
	})

	if event.Reference == "" || event.UserID == "" {
		c.logger.Warn("Payment event missing reference or user", logging.Fields{"event_id": event.ID})
		return
	}

	order, err := c.confirmer.ConfirmPayment(ctx, event.UserID, event.Reference)
	if err != nil {
		c.logger.Error("Failed to confirm payment", logging.Fields{
			"reference": event.Reference,
			"error":     err.Error(),
		})
		return
	}

	c.logger.Info("Payment confirmed", logging.Fields{
		"reference": event.Reference,
		"order_id":  order.ID,
	})
}
