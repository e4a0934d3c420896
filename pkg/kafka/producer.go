package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("kafka producer is closed")

// Config holds Kafka producer settings.
type Config struct {
	Brokers      []string
	WriteTimeout time.Duration
}

// messageWriter is the part of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events to Kafka. The exchange passed to Publish is used as the topic.
type Producer struct {
	writer  messageWriter
	timeout time.Duration
	closed  atomic.Bool
	log     zerolog.Logger
}

// NewProducer creates a synchronous Producer for cfg.Brokers.
func NewProducer(cfg Config, log zerolog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	log = log.With().Str("component", "kafka").Logger()

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		MaxAttempts:            3,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Msgf(msg, args...)
		}),
	}
	return newProducer(writer, cfg.WriteTimeout, log), nil
}

func newProducer(w messageWriter, timeout time.Duration, log zerolog.Logger) *Producer {
	return &Producer{writer: w, timeout: timeout, log: log}
}

// Publish writes body to the topic named exchange. The routing key becomes the message key
// and the "event" header.
func (p *Producer) Publish(exchange, routingKey string, body []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Topic:   exchange,
		Key:     []byte(routingKey),
		Value:   body,
		Headers: []kafka.Header{{Key: "event", Value: []byte(routingKey)}},
		Time:    time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", routingKey, exchange, err)
	}
	p.log.Debug().Str("topic", exchange).Str("routing_key", routingKey).Msg("event published")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
