package notification

import (
	"encoding/json"
	"fmt"

	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// KafkaNotifier queues booking lifecycle events on Kafka; the worker picks
// up confirmations and turns them into receipt emails. Publishing happens
// after the booking's DB commit, so a notification can be lost but never
// refer to a booking that doesn't exist.
type KafkaNotifier struct {
	Producer *kafka.Producer
	Topics   config.TopicConfig
	Logger   *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, topics config.TopicConfig, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{Producer: producer, Topics: topics, Logger: log}
}

func (n *KafkaNotifier) BookingConfirmed(payload models.BookingConfirmed) error {
	if err := n.Producer.PublishBookingConfirmed(n.Topics.BookingConfirmed, payload); err != nil {
		return err
	}
	n.Logger.LogKafka("PUBLISH", n.Topics.BookingConfirmed, fmt.Sprintf("booking %s", payload.BookingID))
	return nil
}

func (n *KafkaNotifier) BookingCancelled(booking models.Booking) error {
	msgBytes, err := json.Marshal(booking)
	if err != nil {
		return err
	}
	if err := n.Producer.Publish(n.Topics.BookingCancelled, booking.ID, msgBytes); err != nil {
		return err
	}
	n.Logger.LogKafka("PUBLISH", n.Topics.BookingCancelled, fmt.Sprintf("booking %s", booking.ID))
	return nil
}

// DirectNotifier sends the receipt in a fire-and-forget goroutine, used
// when Kafka is disabled.
type DirectNotifier struct {
	Sender *EmailSender
	Logger *logger.Logger
}

func NewDirectNotifier(sender *EmailSender, log *logger.Logger) *DirectNotifier {
	return &DirectNotifier{Sender: sender, Logger: log}
}

func (n *DirectNotifier) BookingConfirmed(payload models.BookingConfirmed) error {
	go func() {
		if err := n.Sender.Send(payload); err != nil {
			n.Logger.Warn("EMAIL", fmt.Sprintf("Failed to send receipt for booking %s: %v", payload.BookingID, err))
		}
	}()
	return nil
}

func (n *DirectNotifier) BookingCancelled(booking models.Booking) error {
	n.Logger.Info("EMAIL", fmt.Sprintf("Booking %s cancelled (no cancellation email configured)", booking.ID))
	return nil
}
