// Package queue delivers domain events to RabbitMQ. Publish errors are
// returned so callers can log and continue; ticket operations never fail
// because the broker is down.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/eventia/tickets-service/internal/model"
)

// exchangeName is the durable topic exchange domain events are routed
// through; the routing key is the event name.
const exchangeName = "tickets.events"

// Publisher publishes domain events as persistent JSON messages.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

// Publish routes the event through the exchange under its event name.
func (p *Publisher) Publish(ctx context.Context, event model.DomainEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", event.EventName(), err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.EventName(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx,
		exchangeName,
		event.EventName(), // routing key
		false,             // mandatory
		false,             // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", event.EventName(), err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	_ = p.ch.Close()
	_ = p.conn.Close()
}

// LogPublisher writes events to the log instead of a broker. It stands in
// when no broker URL is configured.
type LogPublisher struct {
	Logger *logrus.Logger
}

// Publish logs the event payload at info level.
func (p *LogPublisher) Publish(ctx context.Context, event model.DomainEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.Logger.WithFields(logrus.Fields{
		"event":   event.EventName(),
		"payload": string(body),
	}).Info("domain event")
	return nil
}
