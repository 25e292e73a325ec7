package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82/client"

	bookingdb "ms-booking/internal/bookings/db"
	"ms-booking/internal/bookings/qr"
	eventdb "ms-booking/internal/events/db"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrEventInPast         = errors.New("cannot book tickets for past events")
	ErrEventStarted        = errors.New("cannot cancel booking for past events")
	ErrInsufficientTickets = errors.New("not enough tickets available")
	ErrNotAuthorized       = errors.New("not authorized for this booking")
	ErrAlreadyCancelled    = errors.New("booking is already cancelled")
	ErrInvalidTransition   = errors.New("invalid booking state transition")
	ErrConfirmInProgress   = errors.New("a confirmation for this booking is already in progress")
)

type DBLayer interface {
	CreateBooking(ctx context.Context, booking models.Booking) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	TransitionBookingStatus(ctx context.Context, booking models.Booking, from models.BookingStatus) error
	ListBookingsByUser(ctx context.Context, userID string) ([]models.BookingWithEvent, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.BookingWithEvent, int, error)
}

// EventStore is the slice of the event catalog the coordinator needs:
// lookups plus the two conditional inventory updates.
type EventStore interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ReserveTickets(ctx context.Context, eventID string, count int) error
	ReleaseTickets(ctx context.Context, eventID string, count int) error
}

// ConfirmLock serializes concurrent confirmations of the same booking.
type ConfirmLock interface {
	LockConfirm(ctx context.Context, bookingID string) (bool, error)
	UnlockConfirm(ctx context.Context, bookingID string) error
}

// Notifier delivers booking lifecycle notifications. Implementations are
// best-effort; the service logs and swallows their errors.
type Notifier interface {
	BookingConfirmed(payload models.BookingConfirmed) error
	BookingCancelled(booking models.Booking) error
}

type BookingService struct {
	DB       DBLayer
	Events   EventStore
	Lock     ConfirmLock
	Notifier Notifier
	Stripe   *client.API
	Logger   *logger.Logger
}

func NewBookingService(db DBLayer, events EventStore, lock ConfirmLock, notifier Notifier, log *logger.Logger) *BookingService {
	return &BookingService{DB: db, Events: events, Lock: lock, Notifier: notifier, Logger: log}
}

// RequestBooking creates a pending booking for the caller. The availability
// check here is advisory only; the binding check is the conditional
// decrement at confirmation time.
func (s *BookingService) RequestBooking(ctx context.Context, user models.UserClaims, req models.BookingRequest) (*models.Booking, error) {
	var valErrs models.ValidationErrors
	if req.EventID == "" {
		valErrs = append(valErrs, models.FieldError{Field: "event_id", Message: "is required"})
	}
	if req.TicketCount < models.MinTicketsPerBooking || req.TicketCount > models.MaxTicketsPerBooking {
		valErrs = append(valErrs, models.FieldError{
			Field:   "ticket_count",
			Message: fmt.Sprintf("must be between %d and %d", models.MinTicketsPerBooking, models.MaxTicketsPerBooking),
		})
	}
	if len(valErrs) > 0 {
		return nil, valErrs
	}

	event, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	if !event.StartTime.After(time.Now()) {
		return nil, ErrEventInPast
	}
	if event.RemainingTickets < req.TicketCount {
		return nil, ErrInsufficientTickets
	}

	booking := models.Booking{
		ID:          uuid.NewString(),
		BookingCode: utils.GenerateBookingCode(),
		EventID:     event.ID,
		UserID:      user.ID,
		UserEmail:   user.Email,
		UserName:    user.Name,
		TicketCount: req.TicketCount,
		AmountPaid:  event.Price * float64(req.TicketCount),
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.DB.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.Logger.LogBooking("REQUEST", booking.ID,
		fmt.Sprintf("%d tickets for event %s, amount %.2f", booking.TicketCount, event.ID, booking.AmountPaid))
	return &booking, nil
}

// ConfirmBooking commits a booking's tickets as sold. The decrement of
// remaining_tickets is a single conditional update, and the whole operation
// is idempotent keyed on (booking id, payment reference): webhook
// redeliveries for an already-confirmed booking return the booking without
// touching inventory.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, paymentIntentID string) (*models.Booking, error) {
	locked, err := s.Lock.LockConfirm(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("confirm lock error: %w", err)
	}
	if !locked {
		return nil, ErrConfirmInProgress
	}
	defer func() {
		if err := s.Lock.UnlockConfirm(ctx, bookingID); err != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("Failed to release confirm lock for %s: %v", bookingID, err))
		}
	}()

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == models.StatusConfirmed && booking.PaymentIntentID == paymentIntentID {
		s.Logger.LogBooking("CONFIRM", bookingID, "already confirmed with same payment reference, skipping")
		return booking, nil
	}

	if !models.CanTransition(booking.Status, models.StatusConfirmed) {
		return nil, ErrInvalidTransition
	}

	if err := s.Events.ReserveTickets(ctx, booking.EventID, booking.TicketCount); err != nil {
		if errors.Is(err, eventdb.ErrConditionFailed) {
			if _, lookupErr := s.getEvent(ctx, booking.EventID); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, ErrInsufficientTickets
		}
		return nil, fmt.Errorf("failed to reserve tickets: %w", err)
	}

	prior := booking.Status
	booking.Status = models.StatusConfirmed
	booking.PaymentIntentID = paymentIntentID
	if err := s.DB.TransitionBookingStatus(ctx, *booking, prior); err != nil {
		// Roll the reservation back so the tickets are not stranded.
		if relErr := s.Events.ReleaseTickets(ctx, booking.EventID, booking.TicketCount); relErr != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("Failed to roll back reservation for %s: %v", bookingID, relErr))
		}
		if errors.Is(err, bookingdb.ErrConditionFailed) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	s.Logger.LogBooking("CONFIRM", bookingID,
		fmt.Sprintf("confirmed, %d tickets reserved on event %s", booking.TicketCount, booking.EventID))

	s.notifyConfirmed(ctx, booking)

	return booking, nil
}

// CancelBooking marks the booking cancelled and returns its tickets if the
// booking had been confirmed. The status flip is a conditional update on the
// status the caller observed, and the tickets come back only when that flip
// lands: a concurrent second cancel loses the guard and cannot release the
// tickets again.
func (s *BookingService) CancelBooking(ctx context.Context, user models.UserClaims, bookingID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != user.ID {
		return nil, ErrNotAuthorized
	}
	if booking.Status == models.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if !models.CanTransition(booking.Status, models.StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	event, err := s.getEvent(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}
	if !event.StartTime.After(time.Now()) {
		return nil, ErrEventStarted
	}

	prior := booking.Status
	wasConfirmed := prior == models.StatusConfirmed

	booking.Status = models.StatusCancelled
	if err := s.DB.TransitionBookingStatus(ctx, *booking, prior); err != nil {
		if errors.Is(err, bookingdb.ErrConditionFailed) {
			// A concurrent writer changed the booking after our read.
			current, lookupErr := s.getBooking(ctx, bookingID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if current.Status == models.StatusCancelled {
				return nil, ErrAlreadyCancelled
			}
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	if wasConfirmed {
		if err := s.Events.ReleaseTickets(ctx, booking.EventID, booking.TicketCount); err != nil {
			s.Logger.Error("BOOKING",
				fmt.Sprintf("Failed to return %d tickets to event %s after cancelling %s: %v",
					booking.TicketCount, booking.EventID, bookingID, err))
		}
	}

	s.Logger.LogBooking("CANCEL", bookingID, "booking cancelled")

	if err := s.Notifier.BookingCancelled(*booking); err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Failed to publish cancellation for %s: %v", bookingID, err))
	}

	return booking, nil
}

// MarkPaymentFailed records a failed payment. No inventory change: tickets
// are only consumed at confirmation, which never happened.
func (s *BookingService) MarkPaymentFailed(ctx context.Context, bookingID, paymentIntentID string) error {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.Status == models.StatusFailed {
		return nil
	}
	if !models.CanTransition(booking.Status, models.StatusFailed) {
		return ErrInvalidTransition
	}

	prior := booking.Status
	booking.Status = models.StatusFailed
	booking.PaymentIntentID = paymentIntentID
	if err := s.DB.TransitionBookingStatus(ctx, *booking, prior); err != nil {
		if errors.Is(err, bookingdb.ErrConditionFailed) {
			current, lookupErr := s.getBooking(ctx, bookingID)
			if lookupErr != nil {
				return lookupErr
			}
			if current.Status == models.StatusFailed {
				return nil
			}
			return ErrInvalidTransition
		}
		return fmt.Errorf("failed to mark booking failed: %w", err)
	}

	s.Logger.LogBooking("PAYMENT_FAILED", bookingID, "payment failed, booking marked failed")
	return nil
}

// GetBooking returns a booking visible to the caller: its owner or an admin.
func (s *BookingService) GetBooking(ctx context.Context, user models.UserClaims, bookingID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.ID && !user.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	return booking, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]models.BookingWithEvent, error) {
	return s.DB.ListBookingsByUser(ctx, userID)
}

func (s *BookingService) ListAllBookings(ctx context.Context, filter models.BookingFilter) (*models.BookingList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 10
	}

	bookings, total, err := s.DB.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.BookingList{
		Bookings:    bookings,
		Total:       total,
		TotalPages:  (total + filter.Limit - 1) / filter.Limit,
		CurrentPage: filter.Page,
	}, nil
}

func (s *BookingService) notifyConfirmed(ctx context.Context, booking *models.Booking) {
	event, err := s.getEvent(ctx, booking.EventID)
	if err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Skipping receipt for %s, event lookup failed: %v", booking.ID, err))
		return
	}

	payload := models.BookingConfirmed{
		BookingID:   booking.ID,
		BookingCode: booking.BookingCode,
		UserEmail:   booking.UserEmail,
		UserName:    booking.UserName,
		EventTitle:  event.Title,
		EventStart:  event.StartTime,
		Venue:       event.Venue,
		TicketCount: booking.TicketCount,
		AmountPaid:  booking.AmountPaid,
	}

	if code, err := qr.GenerateBookingQR(booking.BookingCode); err == nil {
		payload.QRCode = code
	} else {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Failed to generate QR for %s: %v", booking.ID, err))
	}

	if err := s.Notifier.BookingConfirmed(payload); err != nil {
		// Best effort only. Confirmation stands regardless.
		s.Logger.Warn("BOOKING", fmt.Sprintf("Failed to queue receipt for %s: %v", booking.ID, err))
	}
}

func (s *BookingService) getBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) getEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.Events.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}
