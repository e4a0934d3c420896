// Package events defines the order notifications published after a commit.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/pkg/currency"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
)

const (
	// Exchange is the RabbitMQ topic exchange and the Kafka topic for order events.
	Exchange = "orders"

	KeyOrderCreated       = "order.created"
	KeyOrderStatusChanged = "order.status_changed"
)

// OrderCreated is published once an order and its items are committed.
type OrderCreated struct {
	OrderID      string          `json:"order_id"`
	UserID       string          `json:"user_id"`
	Status       string          `json:"status"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	ItemCount    int             `json:"item_count"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// OrderStatusChanged is published after an administrator moves an order to a new status.
type OrderStatusChanged struct {
	OrderID    string    `json:"order_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderCreated builds the event for a freshly committed order.
func NewOrderCreated(order *models.Order) OrderCreated {
	return OrderCreated{
		OrderID:      order.ID,
		UserID:       order.UserID,
		Status:       order.Status.String(),
		Total:        order.TotalAmount,
		TotalDisplay: currency.FormatVND(order.TotalAmount),
		ItemCount:    len(order.Items),
		OccurredAt:   time.Now().UTC(),
	}
}

// NewOrderStatusChanged builds the event for a committed status transition.
func NewOrderStatusChanged(orderID string, from, to models.OrderStatus) OrderStatusChanged {
	return OrderStatusChanged{OrderID: orderID, From: from.String(), To: to.String(), OccurredAt: time.Now().UTC()}
}

// Encode marshals an event to its wire form.
func Encode(event interface{}) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return body, nil
}

// Decode parses body according to routingKey.
func Decode(routingKey string, body []byte) (interface{}, error) {
	switch routingKey {
	case KeyOrderCreated:
		var e OrderCreated
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", routingKey, err)
		}
		return e, nil
	case KeyOrderStatusChanged:
		var e OrderStatusChanged
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", routingKey, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown routing key %q", routingKey)
	}
}

// NewLogHandler returns a consumer handler that records every order event it receives.
// Unknown or malformed messages are reported as errors.
func NewLogHandler(log zerolog.Logger) func(msg amqp.Delivery) error {
	log = log.With().Str("component", "order_events").Logger()
	return func(msg amqp.Delivery) error {
		event, err := Decode(msg.RoutingKey, msg.Body)
		if err != nil {
			log.Error().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("dropping order event")
			return err
		}
		switch e := event.(type) {
		case OrderCreated:
			log.Info().
				Str("order_id", e.OrderID).
				Str("user_id", e.UserID).
				Str("total", e.TotalDisplay).
				Int("items", e.ItemCount).
				Msg("order created")
		case OrderStatusChanged:
			log.Info().
				Str("order_id", e.OrderID).
				Str("from", e.From).
				Str("to", e.To).
				Msg("order status changed")
		}
		return nil
	}
}
