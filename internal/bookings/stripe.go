package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"ms-booking/internal/models"
)

// NewStripeClient builds a Stripe API client from the environment.
func NewStripeClient() (*client.API, error) {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable not set")
	}
	return client.New(key, nil), nil
}

// CreatePaymentIntent creates (or reuses) a Stripe payment intent for a
// pending booking owned by the caller.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, user models.UserClaims, bookingID string) (*stripe.PaymentIntent, error) {
	if s.Stripe == nil {
		return nil, fmt.Errorf("stripe client not configured")
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.ID {
		return nil, ErrNotAuthorized
	}
	if booking.Status != models.StatusPending {
		return nil, ErrInvalidTransition
	}

	// Reuse an intent created by an earlier attempt if it is still usable.
	if booking.PaymentIntentID != "" {
		intent, err := s.Stripe.PaymentIntents.Get(booking.PaymentIntentID, nil)
		if err == nil && intent.Status != stripe.PaymentIntentStatusCanceled && intent.Status != stripe.PaymentIntentStatusSucceeded {
			s.Logger.Info("PAYMENT", fmt.Sprintf("Reusing payment intent %s for booking %s", intent.ID, bookingID))
			return intent, nil
		}
		if err != nil {
			s.Logger.Warn("PAYMENT", fmt.Sprintf("Failed to retrieve existing payment intent %s: %v", booking.PaymentIntentID, err))
		}
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountToCents(booking.AmountPaid)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("booking_id", booking.ID)
	params.AddMetadata("event_id", booking.EventID)
	params.AddMetadata("user_id", booking.UserID)

	intent, err := s.Stripe.PaymentIntents.New(params)
	if err != nil {
		s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to create payment intent for booking %s: %v", bookingID, err))
		return nil, err
	}

	booking.PaymentIntentID = intent.ID
	if err := s.DB.TransitionBookingStatus(ctx, *booking, models.StatusPending); err != nil {
		return nil, fmt.Errorf("failed to store payment intent id: %w", err)
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("Created payment intent %s for booking %s (USD %.2f)", intent.ID, bookingID, booking.AmountPaid))
	return intent, nil
}

// amountToCents converts a dollar amount to Stripe's integer cents. Rounding
// absorbs float representation error: 19.99 * 100 is 1998.999... and plain
// truncation would undercharge by a cent.
func amountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// GetPaymentStatus retrieves the current state of a payment intent.
func (s *BookingService) GetPaymentStatus(paymentIntentID string) (*stripe.PaymentIntent, error) {
	if s.Stripe == nil {
		return nil, fmt.Errorf("stripe client not configured")
	}
	return s.Stripe.PaymentIntents.Get(paymentIntentID, nil)
}

// WebhookError carries an HTTP status and a client-safe message alongside
// the detailed error kept for the logs.
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

// HandleStripeWebhook verifies a Stripe webhook delivery and maps the two
// payment events onto the booking lifecycle: payment_intent.succeeded
// confirms the booking, payment_intent.payment_failed fails it.
func (s *BookingService) HandleStripeWebhook(r *http.Request) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		s.Logger.Error("WEBHOOK", "Stripe webhook secret is not configured")
		return &WebhookError{
			Category:      "configuration",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("Failed to read webhook payload: %v", err),
			OriginalErr:   err,
		}
	}

	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), webhookSecret, opts)
	if err != nil {
		s.Logger.Error("WEBHOOK", fmt.Sprintf("Webhook signature verification failed: %v", err))
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook signature",
			InternalError: fmt.Sprintf("Webhook signature verification failed: %v", err),
			OriginalErr:   err,
		}
	}

	s.Logger.Info("WEBHOOK", fmt.Sprintf("Processing Stripe webhook event: %s", event.Type))

	switch event.Type {
	case "payment_intent.succeeded":
		intent, bookingID, werr := parseIntentEvent(event)
		if werr != nil {
			return werr
		}

		if _, err := s.ConfirmBooking(r.Context(), bookingID, intent.ID); err != nil {
			if isTerminalConflict(err) {
				// The booking has already reached a terminal state; a retry
				// can never apply this event, so acknowledge it.
				s.Logger.Warn("WEBHOOK", fmt.Sprintf("Dropping stale success event for booking %s: %v", bookingID, err))
				return nil
			}
			s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to confirm booking %s: %v", bookingID, err))
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to process payment",
				InternalError: fmt.Sprintf("Failed to confirm booking %s: %v", bookingID, err),
				OriginalErr:   err,
			}
		}

		s.Logger.Info("WEBHOOK", fmt.Sprintf("Payment succeeded, booking %s confirmed", bookingID))

	case "payment_intent.payment_failed":
		intent, bookingID, werr := parseIntentEvent(event)
		if werr != nil {
			return werr
		}

		if err := s.MarkPaymentFailed(r.Context(), bookingID, intent.ID); err != nil {
			if isTerminalConflict(err) {
				s.Logger.Warn("WEBHOOK", fmt.Sprintf("Dropping stale failure event for booking %s: %v", bookingID, err))
				return nil
			}
			s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to mark booking %s failed: %v", bookingID, err))
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to process payment failure",
				InternalError: fmt.Sprintf("Failed to mark booking %s failed: %v", bookingID, err),
				OriginalErr:   err,
			}
		}

		s.Logger.Info("WEBHOOK", fmt.Sprintf("Payment failed for booking %s", bookingID))

	default:
		s.Logger.Debug("WEBHOOK", fmt.Sprintf("Unhandled event type %s", event.Type))
	}

	return nil
}

// isTerminalConflict reports whether a lifecycle error means the booking is
// in a state this event can never move it out of. Such deliveries are
// acknowledged rather than surfaced, or the provider would redeliver a
// permanently unprocessable event forever.
func isTerminalConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAlreadyCancelled)
}

func parseIntentEvent(event stripe.Event) (*stripe.PaymentIntent, string, *WebhookError) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, "", &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid event data",
			InternalError: fmt.Sprintf("Failed to unmarshal payment intent: %v", err),
			OriginalErr:   err,
		}
	}

	bookingID, exists := intent.Metadata["booking_id"]
	if !exists {
		return nil, "", &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid payment intent data",
			InternalError: "Payment intent has no booking_id in metadata",
		}
	}

	return &intent, bookingID, nil
}
