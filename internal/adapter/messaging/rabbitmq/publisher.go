package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"mobile-money-ledger/config"
	"mobile-money-ledger/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implements ports.EventPublisher on a topic exchange. The event
// type is the routing key.
type Publisher struct {
	channel  Channel
	exchange string
	log      zerolog.Logger
}

// NewPublisher creates a new Publisher.
func NewPublisher(ch Channel, exchange string, log zerolog.Logger) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, log: log}
}

// Publish sends the event as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, event domain.OutboundEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		string(event.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID.String(),
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.Debug().
		Str("routing_key", string(event.Type)).
		Str("event_id", event.ID.String()).
		Msg("event published")
	return nil
}

// Connection owns the AMQP connection and the publishing channel.
type Connection struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

// Dial connects, opens a channel and declares the durable topic exchange.
func Dial(cfg config.RabbitMQConfig) (*Connection, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Properties: amqp.Table{"connection_name": "mobile-money-ledger"},
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &Connection{conn: conn, Channel: ch}, nil
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

// Ping implements ports.HealthChecker.
func (c *Connection) Ping(context.Context) error {
	if c.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

// Name returns the dependency name.
func (c *Connection) Name() string {
	return "rabbitmq"
}
