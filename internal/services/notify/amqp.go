// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "notifications"
	exchangeKind = "topic"
)

// AMQPSender publishes notifications to a RabbitMQ topic exchange, for
// deployments where a separate worker owns the actual email delivery.
// The notification kind doubles as the routing key.
type AMQPSender struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPSender connects to RabbitMQ and declares the exchange.
func NewAMQPSender(url string) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &AMQPSender{conn: conn, channel: ch}, nil
}

type amqpEnvelope struct {
	Kind      Kind   `json:"kind"`
	Recipient string `json:"recipient"`
	Data      Data   `json:"data"`
}

// Send publishes the notification as a JSON message.
func (s *AMQPSender) Send(ctx context.Context, kind Kind, recipient string, data Data) error {
	body, err := json.Marshal(amqpEnvelope{Kind: kind, Recipient: recipient, Data: data})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = s.channel.PublishWithContext(ctx,
		exchangeName,
		string(kind),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close releases the channel and the connection.
func (s *AMQPSender) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
