package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/models"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

// Publish writes a single message to the given topic.
func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishBookingConfirmed streams a confirmed-booking event, keyed by
// booking ID so redeliveries for the same booking stay ordered.
func (p *Producer) PublishBookingConfirmed(topic string, payload models.BookingConfirmed) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Publish(topic, payload.BookingID, msgBytes)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
