package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads booking events from one topic as part of a consumer group.
type Consumer struct {
	reader messageReader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ConsumeBookingEvents hands every decodable event to handler until ctx is
// done or handler fails. Malformed messages are logged and skipped.
func (c *Consumer) ConsumeBookingEvents(ctx context.Context, handler func(context.Context, BookingEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		event, err := DecodeBookingEvent(msg.Value)
		if err != nil {
			log.Printf("WARNING: skipping message at %s/%d offset %d: %v", msg.Topic, msg.Partition, msg.Offset, err)
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

// DecodeBookingEvent parses a booking event and rejects payloads that do not
// name a known event type and a valid weekday.
func DecodeBookingEvent(data []byte) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event: %w", err)
	}
	switch event.Type {
	case EventBookingCreated, EventWaitlistJoined:
	default:
		return BookingEvent{}, fmt.Errorf("unknown booking event type %q", event.Type)
	}
	if !event.DayOfWeek.Valid() {
		return BookingEvent{}, fmt.Errorf("booking event %s has invalid day %q", event.ID, event.DayOfWeek)
	}
	return event, nil
}
