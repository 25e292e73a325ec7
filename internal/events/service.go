package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNotAuthorized = errors.New("not authorized to modify this event")
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	GetEventStats(ctx context.Context, now time.Time) (*models.EventStats, error)
}

type EventService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewEventService(db DBLayer, log *logger.Logger) *EventService {
	return &EventService{DB: db, Logger: log}
}

func (s *EventService) List(ctx context.Context, filter models.EventFilter) (*models.EventList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 10
	}

	events, total, err := s.DB.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.EventList{
		Events:      events,
		Total:       total,
		TotalPages:  (total + filter.Limit - 1) / filter.Limit,
		CurrentPage: filter.Page,
	}, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *EventService) Create(ctx context.Context, user models.UserClaims, req models.EventRequest) (*models.Event, error) {
	if errs := validateEventRequest(req, false); len(errs) > 0 {
		return nil, errs
	}

	price := 0.0
	if req.Price != nil {
		price = *req.Price
	}

	event := models.Event{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Description:      req.Description,
		StartTime:        req.StartTime,
		Venue:            req.Venue,
		Price:            price,
		TotalTickets:     req.TotalTickets,
		RemainingTickets: req.TotalTickets,
		Category:         req.Category,
		Image:            req.Image,
		CreatedBy:        user.ID,
		CreatedAt:        time.Now(),
	}
	if event.Category == "" {
		event.Category = models.CategoryStandard
	}

	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Created event %s (%s) with %d tickets", event.ID, event.Title, event.TotalTickets))
	return &event, nil
}

// Update applies a partial update. Only the owner or an admin may mutate.
// When total_tickets changes, remaining_tickets is recomputed so already
// sold tickets stay sold: remaining = max(0, newTotal - sold).
func (s *EventService) Update(ctx context.Context, user models.UserClaims, id string, req models.EventRequest) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() && event.CreatedBy != user.ID {
		return nil, ErrNotAuthorized
	}

	if errs := validateEventRequest(req, true); len(errs) > 0 {
		return nil, errs
	}

	if req.TotalTickets > 0 && req.TotalTickets != event.TotalTickets {
		sold := event.TotalTickets - event.RemainingTickets
		event.RemainingTickets = req.TotalTickets - sold
		if event.RemainingTickets < 0 {
			event.RemainingTickets = 0
		}
		event.TotalTickets = req.TotalTickets
	}

	if req.Title != "" {
		event.Title = req.Title
	}
	if req.Description != "" {
		event.Description = req.Description
	}
	if !req.StartTime.IsZero() {
		event.StartTime = req.StartTime
	}
	if req.Venue != "" {
		event.Venue = req.Venue
	}
	if req.Price != nil {
		event.Price = *req.Price
	}
	if req.Category != "" {
		event.Category = req.Category
	}
	if req.Image != "" {
		event.Image = req.Image
	}

	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return nil, err
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Updated event %s", event.ID))
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, user models.UserClaims, id string) error {
	event, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !user.IsAdmin() && event.CreatedBy != user.ID {
		return ErrNotAuthorized
	}

	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return err
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Deleted event %s (%s)", event.ID, event.Title))
	return nil
}

func (s *EventService) Stats(ctx context.Context) (*models.EventStats, error) {
	return s.DB.GetEventStats(ctx, time.Now())
}

func validateEventRequest(req models.EventRequest, partial bool) models.ValidationErrors {
	var errs models.ValidationErrors

	if (!partial || req.Title != "") && len(req.Title) < 3 {
		errs = append(errs, models.FieldError{Field: "title", Message: "must be at least 3 characters"})
	}
	if (!partial || req.Description != "") && len(req.Description) < 10 {
		errs = append(errs, models.FieldError{Field: "description", Message: "must be at least 10 characters"})
	}
	if (!partial || req.Venue != "") && len(req.Venue) < 3 {
		errs = append(errs, models.FieldError{Field: "venue", Message: "must be at least 3 characters"})
	}
	if !partial && req.StartTime.IsZero() {
		errs = append(errs, models.FieldError{Field: "start_time", Message: "is required"})
	}
	if req.Price != nil && *req.Price < 0 {
		errs = append(errs, models.FieldError{Field: "price", Message: "must not be negative"})
	}
	if (!partial || req.TotalTickets != 0) && req.TotalTickets < 1 {
		errs = append(errs, models.FieldError{Field: "total_tickets", Message: "must be at least 1"})
	}
	if req.Category != "" && !models.ValidCategory(req.Category) {
		errs = append(errs, models.FieldError{Field: "category", Message: "must be VIP or Standard"})
	}

	return errs
}
