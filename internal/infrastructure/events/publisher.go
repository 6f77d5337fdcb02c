// Package events publishes mission payment lifecycle events to a durable
// topic exchange. Notification and invoicing consumers live elsewhere;
// the orchestration core never waits on them.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
	"github.com/rabbitmq/amqp091-go"
)

type RabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *slog.Logger
}

func NewRabbitPublisher(cfg config.EventsConfig, logger *slog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{
		Dial: amqp091.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitPublisher{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event application.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   event.OccurredAt,
			Body:        body,
		},
	)
	if err != nil {
		// One-shot retry on a fresh channel; broker hiccups are common.
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return err
		}
		p.channel = ch
		return p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   event.OccurredAt,
			Body:        body,
		})
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NoopPublisher is used when no broker is configured. Events are logged
// and dropped.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (n NoopPublisher) Publish(_ context.Context, event application.Event) error {
	if n.Logger != nil {
		n.Logger.Debug("event publish skipped", "type", event.Type, "mission_id", event.MissionID)
	}
	return nil
}
