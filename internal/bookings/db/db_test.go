package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	if err := bunDB.ResetModel(ctx, (*models.Event)(nil)); err != nil {
		t.Fatalf("Failed to create events table: %v", err)
	}
	if err := bunDB.ResetModel(ctx, (*models.Booking)(nil)); err != nil {
		t.Fatalf("Failed to create bookings table: %v", err)
	}

	return &DB{Bun: bunDB}
}

func seedEvent(t *testing.T, db *DB, id string) {
	event := models.Event{
		ID:               id,
		Title:            "Summer Fest",
		Description:      "Annual music festival.",
		StartTime:        time.Now().Add(72 * time.Hour).Round(time.Second),
		Venue:            "Riverside Park",
		Price:            50.0,
		TotalTickets:     100,
		RemainingTickets: 100,
		Category:         models.CategoryStandard,
		CreatedBy:        "admin-1",
		CreatedAt:        time.Now().Round(time.Second),
	}
	if _, err := db.Bun.NewInsert().Model(&event).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}
}

func sampleBooking(id, eventID, userID string, createdAt time.Time) models.Booking {
	return models.Booking{
		ID:          id,
		BookingCode: "BK-" + id,
		EventID:     eventID,
		UserID:      userID,
		UserEmail:   "alice@example.com",
		UserName:    "Alice",
		TicketCount: 2,
		AmountPaid:  100.0,
		Status:      models.StatusPending,
		CreatedAt:   createdAt.Round(time.Second),
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedEvent(t, db, "event-1")

	booking := sampleBooking("booking-1", "event-1", "user-1", time.Now())
	if err := db.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	retrieved, err := db.GetBookingByID(ctx, "booking-1")
	if err != nil {
		t.Fatalf("Failed to retrieve booking: %v", err)
	}

	if retrieved.BookingCode != booking.BookingCode {
		t.Errorf("Expected code %s, got %s", booking.BookingCode, retrieved.BookingCode)
	}
	if retrieved.Status != models.StatusPending {
		t.Errorf("Expected status pending, got %s", retrieved.Status)
	}
	if retrieved.AmountPaid != 100.0 {
		t.Errorf("Expected amount 100.0, got %f", retrieved.AmountPaid)
	}
	if retrieved.UserEmail != "alice@example.com" {
		t.Errorf("Expected snapshotted email, got %s", retrieved.UserEmail)
	}
}

func TestGetMissingBooking(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetBookingByID(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected sql.ErrNoRows, got %v", err)
	}
}

func TestTransitionBookingStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedEvent(t, db, "event-1")

	booking := sampleBooking("booking-1", "event-1", "user-1", time.Now())
	if err := db.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	booking.Status = models.StatusConfirmed
	booking.PaymentIntentID = "pi_123"
	if err := db.TransitionBookingStatus(ctx, booking, models.StatusPending); err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}

	retrieved, _ := db.GetBookingByID(ctx, "booking-1")
	if retrieved.Status != models.StatusConfirmed {
		t.Errorf("Expected status confirmed, got %s", retrieved.Status)
	}
	if retrieved.PaymentIntentID != "pi_123" {
		t.Errorf("Expected payment intent pi_123, got %s", retrieved.PaymentIntentID)
	}

	// Other columns must be untouched by a status update.
	if retrieved.AmountPaid != 100.0 {
		t.Errorf("Expected amount unchanged, got %f", retrieved.AmountPaid)
	}
}

func TestTransitionBookingStatusStalePriorStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedEvent(t, db, "event-1")

	booking := sampleBooking("booking-1", "event-1", "user-1", time.Now())
	if err := db.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	booking.Status = models.StatusCancelled
	if err := db.TransitionBookingStatus(ctx, booking, models.StatusPending); err != nil {
		t.Fatalf("Failed to cancel booking: %v", err)
	}

	// A writer that still believes the booking is pending must lose.
	booking.Status = models.StatusConfirmed
	booking.PaymentIntentID = "pi_456"
	err := db.TransitionBookingStatus(ctx, booking, models.StatusPending)
	if !errors.Is(err, ErrConditionFailed) {
		t.Errorf("Expected ErrConditionFailed, got %v", err)
	}

	retrieved, _ := db.GetBookingByID(ctx, "booking-1")
	if retrieved.Status != models.StatusCancelled {
		t.Errorf("Expected status to stay cancelled, got %s", retrieved.Status)
	}
	if retrieved.PaymentIntentID != "" {
		t.Errorf("Expected payment intent untouched, got %s", retrieved.PaymentIntentID)
	}
}

func TestListBookingsByUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedEvent(t, db, "event-1")
	seedEvent(t, db, "event-2")

	now := time.Now()
	for i, eventID := range []string{"event-1", "event-2", "event-1"} {
		b := sampleBooking(fmt.Sprintf("booking-%d", i), eventID, "user-1", now.Add(time.Duration(i)*time.Minute))
		if err := db.CreateBooking(ctx, b); err != nil {
			t.Fatalf("Failed to create booking: %v", err)
		}
	}
	other := sampleBooking("booking-other", "event-1", "user-2", now)
	if err := db.CreateBooking(ctx, other); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	bookings, err := db.ListBookingsByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to list bookings: %v", err)
	}

	if len(bookings) != 3 {
		t.Fatalf("Expected 3 bookings, got %d", len(bookings))
	}
	// Newest first.
	if bookings[0].ID != "booking-2" {
		t.Errorf("Expected newest booking first, got %s", bookings[0].ID)
	}
	// Every booking carries its event.
	for _, b := range bookings {
		if b.Event == nil {
			t.Errorf("Expected event attached to booking %s", b.ID)
		} else if b.Event.ID != b.EventID {
			t.Errorf("Expected event %s, got %s", b.EventID, b.Event.ID)
		}
	}
}

func TestListBookingsByUserEmpty(t *testing.T) {
	db := setupTestDB(t)

	bookings, err := db.ListBookingsByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(bookings) != 0 {
		t.Errorf("Expected empty list, got %d", len(bookings))
	}
}

func TestListBookingsFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedEvent(t, db, "event-1")
	seedEvent(t, db, "event-2")

	now := time.Now()
	confirmed := sampleBooking("booking-1", "event-1", "user-1", now)
	confirmed.Status = models.StatusConfirmed
	pending := sampleBooking("booking-2", "event-1", "user-2", now.Add(time.Minute))
	otherEvent := sampleBooking("booking-3", "event-2", "user-3", now.Add(2*time.Minute))
	otherEvent.Status = models.StatusConfirmed

	for _, b := range []models.Booking{confirmed, pending, otherEvent} {
		if err := db.CreateBooking(ctx, b); err != nil {
			t.Fatalf("Failed to create booking: %v", err)
		}
	}

	// Status filter.
	bookings, total, err := db.ListBookings(ctx, models.BookingFilter{Status: models.StatusConfirmed, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Failed to list confirmed bookings: %v", err)
	}
	if total != 2 || len(bookings) != 2 {
		t.Errorf("Expected 2 confirmed bookings, got total=%d len=%d", total, len(bookings))
	}

	// Event filter combined with status.
	bookings, total, err = db.ListBookings(ctx, models.BookingFilter{
		Status:  models.StatusConfirmed,
		EventID: "event-2",
		Page:    1,
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("Failed to list filtered bookings: %v", err)
	}
	if total != 1 || bookings[0].ID != "booking-3" {
		t.Errorf("Expected only booking-3, got total=%d", total)
	}

	// Pagination.
	bookings, total, err = db.ListBookings(ctx, models.BookingFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Failed to list page 2: %v", err)
	}
	if total != 3 || len(bookings) != 1 {
		t.Errorf("Expected 1 booking on page 2, got total=%d len=%d", total, len(bookings))
	}
}
