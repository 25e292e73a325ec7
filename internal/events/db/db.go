package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// ErrNoRows is returned when a lookup matches nothing.
var ErrNoRows = sql.ErrNoRows

// ErrConditionFailed is returned when a conditional ticket update matched no
// row: the event is missing or the guard on remaining_tickets failed.
var ErrConditionFailed = errors.New("conditional update matched no rows")

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

func (d *DB) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	event.UpdatedAt = time.Now()
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("title", "description", "start_time", "venue", "price",
			"total_tickets", "remaining_tickets", "category", "image", "updated_at").
		Where("id = ?", event.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ListEvents returns a page of events matching the filter, sorted by start
// time ascending, together with the total match count.
func (d *DB) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	events := make([]models.Event, 0)

	query := d.Bun.NewSelect().Model(&events)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(title) LIKE LOWER(?)", pattern).
				WhereOr("LOWER(description) LIKE LOWER(?)", pattern).
				WhereOr("LOWER(venue) LIKE LOWER(?)", pattern)
		})
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("start_time ASC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// GetEventStats aggregates the counts the admin dashboard shows.
func (d *DB) GetEventStats(ctx context.Context, now time.Time) (*models.EventStats, error) {
	total, err := d.Bun.NewSelect().Model((*models.Event)(nil)).Count(ctx)
	if err != nil {
		return nil, err
	}

	upcoming, err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("start_time >= ?", now).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	var categoryStats []models.CategoryCount
	err = d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		ColumnExpr("category").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("category").
		OrderExpr("category").
		Scan(ctx, &categoryStats)
	if err != nil {
		return nil, err
	}

	return &models.EventStats{
		TotalEvents:    total,
		UpcomingEvents: upcoming,
		PastEvents:     total - upcoming,
		CategoryStats:  categoryStats,
	}, nil
}

// ---------------- INVENTORY ----------------

// ReserveTickets decrements remaining_tickets by count only if enough
// remain. The availability check and the decrement are a single conditional
// UPDATE, so concurrent confirmations cannot oversell the event.
func (d *DB) ReserveTickets(ctx context.Context, eventID string, count int) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("remaining_tickets = remaining_tickets - ?", count).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", eventID).
		Where("remaining_tickets >= ?", count).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ReleaseTickets returns count tickets to the event. The guard keeps
// remaining_tickets from ever exceeding total_tickets, so a doubled release
// fails instead of corrupting the counter.
func (d *DB) ReleaseTickets(ctx context.Context, eventID string, count int) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("remaining_tickets = remaining_tickets + ?", count).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", eventID).
		Where("remaining_tickets + ? <= total_tickets", count).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConditionFailed
	}
	return nil
}
