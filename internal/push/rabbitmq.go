package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/kafka"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const rabbitRoutingKey = "push.reminder"

// RabbitGateway publishes push messages to a durable topic exchange.
type RabbitGateway struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitGateway(url, exchange string) (*RabbitGateway, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitGateway{conn: conn, ch: ch, exchange: exchange}, nil
}

func (g *RabbitGateway) Send(ctx context.Context, token, title, body string) error {
	if err := checkToken(token); err != nil {
		return err
	}
	payload, err := json.Marshal(kafka.PushMessage{ID: uuid.NewString(), Token: token, Title: title, Body: body})
	if err != nil {
		return err
	}
	err = g.ch.PublishWithContext(ctx, g.exchange, rabbitRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationDelivery, err)
	}
	return nil
}

func (g *RabbitGateway) Close() error {
	if g.ch != nil {
		_ = g.ch.Close()
	}
	if g.conn != nil {
		return g.conn.Close()
	}
	return nil
}

var _ Gateway = (*RabbitGateway)(nil)
