// Package push adapts the reminder dispatcher to the external push
// notification pipeline.
package push

import (
	"context"
	"fmt"
	"log"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/kafka"
	"github.com/google/uuid"
)

// Gateway delivers one notification to one device token. Delivery is best
// effort; callers treat errors as per-message failures.
type Gateway interface {
	Send(ctx context.Context, token, title, body string) error
}

// Publisher is the subset of the Kafka producer the gateway needs.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type KafkaGateway struct {
	producer Publisher
	topic    string
}

func NewKafkaGateway(producer Publisher, topic string) *KafkaGateway {
	return &KafkaGateway{producer: producer, topic: topic}
}

// checkToken rejects sends that have no device to go to.
func checkToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty device token", domain.ErrNotificationDelivery)
	}
	return nil
}

func (g *KafkaGateway) Send(ctx context.Context, token, title, body string) error {
	if err := checkToken(token); err != nil {
		return err
	}
	msg := kafka.PushMessage{ID: uuid.NewString(), Token: token, Title: title, Body: body}
	if err := g.producer.Publish(ctx, g.topic, token, msg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationDelivery, err)
	}
	return nil
}

// LogGateway only logs; used when no push pipeline is configured.
type LogGateway struct{}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (LogGateway) Send(_ context.Context, token, title, body string) error {
	if err := checkToken(token); err != nil {
		return err
	}
	log.Printf("[push] token=%s title=%q body=%q", maskToken(token), title, body)
	return nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}

var (
	_ Gateway = (*KafkaGateway)(nil)
	_ Gateway = LogGateway{}
)
