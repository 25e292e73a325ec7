package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/models"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start consumes confirmed-booking events until the context is cancelled.
// Malformed messages are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(models.BookingConfirmed)) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("kafka: error reading message: %v", err)
			continue
		}

		var payload models.BookingConfirmed
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Printf("kafka: failed to unmarshal message: %v", err)
			continue
		}

		handler(payload)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
