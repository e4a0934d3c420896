package services

import (
	"storefront/internal/events"

	"github.com/rs/zerolog"
)

// EventPublisher delivers an encoded event to a broker. Both the RabbitMQ client and the
// Kafka producer satisfy it.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// publishEvent sends event on the orders exchange. The order is already committed when this runs,
// so failures are logged and never returned.
func publishEvent(publisher EventPublisher, log zerolog.Logger, routingKey, orderID string, event interface{}) {
	if publisher == nil {
		log.Debug().Str("routing_key", routingKey).Str("order_id", orderID).Msg("no event broker configured, skipping publish")
		return
	}
	body, err := events.Encode(event)
	if err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Str("order_id", orderID).Msg("failed to encode event")
		return
	}
	if err := publisher.Publish(events.Exchange, routingKey, body); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Str("order_id", orderID).Msg("failed to publish event")
		return
	}
	log.Info().Str("routing_key", routingKey).Str("order_id", orderID).Msg("event published")
}
