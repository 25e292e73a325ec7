package events_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-booking/internal/events"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type MockEventDB struct {
	events       map[string]*models.Event
	shouldFailOn string
	errorMsg     string
}

func NewMockEventDB() *MockEventDB {
	return &MockEventDB{events: make(map[string]*models.Event)}
}

func (m *MockEventDB) CreateEvent(ctx context.Context, event models.Event) error {
	if m.shouldFailOn == "CreateEvent" {
		return errors.New(m.errorMsg)
	}
	m.events[event.ID] = &event
	return nil
}

func (m *MockEventDB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	if m.shouldFailOn == "GetEventByID" {
		return nil, errors.New(m.errorMsg)
	}
	event, exists := m.events[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	copied := *event
	return &copied, nil
}

func (m *MockEventDB) UpdateEvent(ctx context.Context, event models.Event) error {
	if m.shouldFailOn == "UpdateEvent" {
		return errors.New(m.errorMsg)
	}
	if _, exists := m.events[event.ID]; !exists {
		return sql.ErrNoRows
	}
	m.events[event.ID] = &event
	return nil
}

func (m *MockEventDB) DeleteEvent(ctx context.Context, id string) error {
	if m.shouldFailOn == "DeleteEvent" {
		return errors.New(m.errorMsg)
	}
	delete(m.events, id)
	return nil
}

func (m *MockEventDB) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	if m.shouldFailOn == "ListEvents" {
		return nil, 0, errors.New(m.errorMsg)
	}
	var result []models.Event
	for _, e := range m.events {
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		result = append(result, *e)
	}
	return result, len(result), nil
}

func (m *MockEventDB) GetEventStats(ctx context.Context, now time.Time) (*models.EventStats, error) {
	if m.shouldFailOn == "GetEventStats" {
		return nil, errors.New(m.errorMsg)
	}
	stats := &models.EventStats{TotalEvents: len(m.events)}
	for _, e := range m.events {
		if e.StartTime.After(now) {
			stats.UpcomingEvents++
		} else {
			stats.PastEvents++
		}
	}
	return stats, nil
}

func setupService() (*MockEventDB, *events.EventService) {
	db := NewMockEventDB()
	return db, events.NewEventService(db, logger.NewLogger())
}

func adminUser() models.UserClaims {
	return models.UserClaims{ID: "admin-1", Role: models.RoleAdmin}
}

func floatPtr(f float64) *float64 { return &f }

func validRequest() models.EventRequest {
	return models.EventRequest{
		Title:        "Summer Fest",
		Description:  "Annual music festival by the river.",
		StartTime:    time.Now().Add(72 * time.Hour),
		Venue:        "Riverside Park",
		Price:        floatPtr(50.0),
		TotalTickets: 100,
		Category:     models.CategoryVIP,
	}
}

func TestCreateEvent(t *testing.T) {
	db, service := setupService()

	event, err := service.Create(context.Background(), adminUser(), validRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if event.RemainingTickets != event.TotalTickets {
		t.Errorf("Expected remaining to start at total, got %d/%d", event.RemainingTickets, event.TotalTickets)
	}
	if event.CreatedBy != "admin-1" {
		t.Errorf("Expected creator admin-1, got %s", event.CreatedBy)
	}
	if _, exists := db.events[event.ID]; !exists {
		t.Error("Expected event to be persisted")
	}
}

func TestCreateEventDefaultsCategory(t *testing.T) {
	_, service := setupService()

	req := validRequest()
	req.Category = ""
	event, err := service.Create(context.Background(), adminUser(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if event.Category != models.CategoryStandard {
		t.Errorf("Expected category Standard, got %s", event.Category)
	}
}

func TestCreateEventValidation(t *testing.T) {
	_, service := setupService()

	cases := []func(*models.EventRequest){
		func(r *models.EventRequest) { r.Title = "ab" },
		func(r *models.EventRequest) { r.Description = "short" },
		func(r *models.EventRequest) { r.Venue = "" },
		func(r *models.EventRequest) { r.StartTime = time.Time{} },
		func(r *models.EventRequest) { r.Price = floatPtr(-5) },
		func(r *models.EventRequest) { r.TotalTickets = 0 },
		func(r *models.EventRequest) { r.Category = "Premium" },
	}

	for i, mutate := range cases {
		req := validRequest()
		mutate(&req)
		_, err := service.Create(context.Background(), adminUser(), req)
		var valErrs models.ValidationErrors
		if !errors.As(err, &valErrs) {
			t.Errorf("Case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestUpdateEventRecomputesRemaining(t *testing.T) {
	db, service := setupService()

	event, err := service.Create(context.Background(), adminUser(), validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 30 tickets sold.
	db.events[event.ID].RemainingTickets = 70

	// Raising the total keeps sold tickets sold.
	updated, err := service.Update(context.Background(), adminUser(), event.ID, models.EventRequest{TotalTickets: 120})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.TotalTickets != 120 || updated.RemainingTickets != 90 {
		t.Errorf("Expected 90/120, got %d/%d", updated.RemainingTickets, updated.TotalTickets)
	}

	// Shrinking the total below the sold count clamps remaining at zero.
	updated, err = service.Update(context.Background(), adminUser(), event.ID, models.EventRequest{TotalTickets: 20})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.TotalTickets != 20 || updated.RemainingTickets != 0 {
		t.Errorf("Expected 0/20, got %d/%d", updated.RemainingTickets, updated.TotalTickets)
	}
}

func TestUpdateEventPartialFields(t *testing.T) {
	db, service := setupService()

	event, err := service.Create(context.Background(), adminUser(), validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := service.Update(context.Background(), adminUser(), event.ID, models.EventRequest{
		Title: "Autumn Fest",
		Price: floatPtr(60.0),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Title != "Autumn Fest" {
		t.Errorf("Expected updated title, got %s", updated.Title)
	}
	if updated.Price != 60.0 {
		t.Errorf("Expected price 60.0, got %f", updated.Price)
	}
	// Untouched fields stay as they were.
	if updated.Venue != "Riverside Park" {
		t.Errorf("Expected venue unchanged, got %s", updated.Venue)
	}
	if updated.TotalTickets != 100 || db.events[event.ID].RemainingTickets != 100 {
		t.Errorf("Expected tickets unchanged, got %d/%d", updated.RemainingTickets, updated.TotalTickets)
	}
}

func TestUpdateEventAuthorization(t *testing.T) {
	_, service := setupService()

	owner := models.UserClaims{ID: "user-1", Role: models.RoleUser}
	event, err := service.Create(context.Background(), owner, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Owner may update.
	if _, err := service.Update(context.Background(), owner, event.ID, models.EventRequest{Title: "New Title"}); err != nil {
		t.Errorf("Expected owner update to succeed, got %v", err)
	}

	// Admin may update someone else's event.
	if _, err := service.Update(context.Background(), adminUser(), event.ID, models.EventRequest{Title: "Admin Title"}); err != nil {
		t.Errorf("Expected admin update to succeed, got %v", err)
	}

	// A different regular user may not.
	other := models.UserClaims{ID: "user-2", Role: models.RoleUser}
	if _, err := service.Update(context.Background(), other, event.ID, models.EventRequest{Title: "Nope"}); !errors.Is(err, events.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}
}

func TestDeleteEventAuthorization(t *testing.T) {
	db, service := setupService()

	owner := models.UserClaims{ID: "user-1", Role: models.RoleUser}
	event, err := service.Create(context.Background(), owner, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	other := models.UserClaims{ID: "user-2", Role: models.RoleUser}
	if err := service.Delete(context.Background(), other, event.ID); !errors.Is(err, events.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}

	if err := service.Delete(context.Background(), owner, event.ID); err != nil {
		t.Errorf("Expected owner delete to succeed, got %v", err)
	}
	if _, exists := db.events[event.ID]; exists {
		t.Error("Expected event to be deleted")
	}
}

func TestGetMissingEvent(t *testing.T) {
	_, service := setupService()

	_, err := service.Get(context.Background(), "missing")
	if !errors.Is(err, events.ErrEventNotFound) {
		t.Errorf("Expected ErrEventNotFound, got %v", err)
	}
}

func TestListClampsPagination(t *testing.T) {
	_, service := setupService()

	list, err := service.List(context.Background(), models.EventFilter{Page: -1, Limit: 500})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if list.CurrentPage != 1 {
		t.Errorf("Expected page clamped to 1, got %d", list.CurrentPage)
	}
}
