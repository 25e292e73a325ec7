package notification

import (
	"context"
	"fmt"

	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// Worker consumes confirmed-booking events and sends receipts. Send
// failures are logged and the message is dropped; receipt delivery never
// affects the booking itself.
type Worker struct {
	Consumer *kafka.Consumer
	Sender   *EmailSender
	Logger   *logger.Logger
}

func NewWorker(consumer *kafka.Consumer, sender *EmailSender, log *logger.Logger) *Worker {
	return &Worker{Consumer: consumer, Sender: sender, Logger: log}
}

// Run blocks consuming until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.Logger.Info("WORKER", "Notification worker started")
	w.Consumer.Start(ctx, func(payload models.BookingConfirmed) {
		if err := w.Sender.Send(payload); err != nil {
			w.Logger.Warn("WORKER", fmt.Sprintf("Failed to send receipt for booking %s: %v", payload.BookingID, err))
		}
	})
	w.Logger.Info("WORKER", "Notification worker stopped")
}
