package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusFailed    BookingStatus = "failed"
	StatusCancelled BookingStatus = "cancelled"
)

// allowedTransitions encodes the booking lifecycle: a booking starts
// pending, moves to confirmed or failed when the payment settles, and can
// be cancelled while pending or confirmed (cancelling a confirmed booking
// refunds it). failed and cancelled are terminal.
var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusFailed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

// CanTransition reports whether moving from one booking status to another
// is a legal lifecycle transition.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	MinTicketsPerBooking = 1
	MaxTicketsPerBooking = 10
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID          string `bun:"id,pk" json:"id"`
	BookingCode string `bun:"booking_code,notnull,unique" json:"booking_code"`
	EventID     string `bun:"event_id,notnull" json:"event_id"`
	UserID      string `bun:"user_id,notnull" json:"user_id"`
	// Contact details are snapshotted from the token claims at creation so
	// the receipt can be sent without a call to the identity provider.
	UserEmail       string        `bun:"user_email,nullzero" json:"user_email,omitempty"`
	UserName        string        `bun:"user_name,nullzero" json:"user_name,omitempty"`
	TicketCount     int           `bun:"ticket_count,notnull" json:"ticket_count"`
	AmountPaid      float64       `bun:"amount_paid,notnull" json:"amount_paid"`
	Status          BookingStatus `bun:"status,notnull" json:"status"`
	PaymentIntentID string        `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time     `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type BookingRequest struct {
	EventID     string `json:"event_id"`
	TicketCount int    `json:"ticket_count"`
}

type ConfirmRequest struct {
	BookingID       string `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// BookingFilter carries the admin listing query parameters.
type BookingFilter struct {
	Status  BookingStatus
	EventID string
	Page    int
	Limit   int
}

// BookingWithEvent joins a booking with the event it is for, the shape the
// listing endpoints return.
type BookingWithEvent struct {
	Booking
	Event *Event `json:"event,omitempty"`
}

type BookingList struct {
	Bookings    []BookingWithEvent `json:"bookings"`
	Total       int                `json:"total"`
	TotalPages  int                `json:"total_pages"`
	CurrentPage int                `json:"current_page"`
}

// BookingConfirmed is the payload published to Kafka after a booking is
// confirmed; the notification worker turns it into a receipt email.
type BookingConfirmed struct {
	BookingID   string    `json:"booking_id"`
	BookingCode string    `json:"booking_code"`
	UserEmail   string    `json:"user_email"`
	UserName    string    `json:"user_name"`
	EventTitle  string    `json:"event_title"`
	EventStart  time.Time `json:"event_start"`
	Venue       string    `json:"venue"`
	TicketCount int       `json:"ticket_count"`
	AmountPaid  float64   `json:"amount_paid"`
	QRCode      string    `json:"qr_code,omitempty"`
}
