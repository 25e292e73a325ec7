package db

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// ErrConditionFailed reports a guarded status update that matched no rows:
// the booking no longer holds the expected prior status.
var ErrConditionFailed = errors.New("booking status condition failed")

type DB struct {
	Bun *bun.DB
}

// ---------------- BOOKINGS ----------------

func (d *DB) CreateBooking(ctx context.Context, booking models.Booking) error {
	_, err := d.Bun.NewInsert().Model(&booking).Exec(ctx)
	return err
}

func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// TransitionBookingStatus persists a lifecycle transition together with the
// payment reference that drove it. The check and the write are a single
// conditional UPDATE: the row is only touched while it still holds the
// expected prior status, so two racing transitions cannot both land.
func (d *DB) TransitionBookingStatus(ctx context.Context, booking models.Booking, from models.BookingStatus) error {
	booking.UpdatedAt = time.Now()
	res, err := d.Bun.NewUpdate().
		Model(&booking).
		Column("status", "payment_intent_id", "updated_at").
		Where("id = ?", booking.ID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConditionFailed
	}
	return nil
}

// ListBookingsByUser returns all of a user's bookings, newest first, each
// joined with its event.
func (d *DB) ListBookingsByUser(ctx context.Context, userID string) ([]models.BookingWithEvent, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return d.attachEvents(ctx, bookings)
}

// ListBookings returns a page of bookings matching the admin filter, newest
// first, together with the total match count.
func (d *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.BookingWithEvent, int, error) {
	var bookings []models.Booking

	query := d.Bun.NewSelect().Model(&bookings)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EventID != "" {
		query = query.Where("event_id = ?", filter.EventID)
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	withEvents, err := d.attachEvents(ctx, bookings)
	if err != nil {
		return nil, 0, err
	}

	return withEvents, total, nil
}

// attachEvents resolves the event for each booking with a single IN query
// and groups the results.
func (d *DB) attachEvents(ctx context.Context, bookings []models.Booking) ([]models.BookingWithEvent, error) {
	if len(bookings) == 0 {
		return []models.BookingWithEvent{}, nil
	}

	eventIDs := make([]string, 0, len(bookings))
	seen := make(map[string]bool)
	for _, b := range bookings {
		if !seen[b.EventID] {
			seen[b.EventID] = true
			eventIDs = append(eventIDs, b.EventID)
		}
	}

	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("id IN (?)", bun.In(eventIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	eventsByID := make(map[string]*models.Event, len(events))
	for i := range events {
		eventsByID[events[i].ID] = &events[i]
	}

	result := make([]models.BookingWithEvent, len(bookings))
	for i, b := range bookings {
		result[i] = models.BookingWithEvent{
			Booking: b,
			Event:   eventsByID[b.EventID],
		}
	}

	return result, nil
}
