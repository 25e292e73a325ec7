package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	CategoryVIP      = "VIP"
	CategoryStandard = "Standard"
)

// ValidCategory reports whether the given category is one of the known ones.
func ValidCategory(category string) bool {
	return category == CategoryVIP || category == CategoryStandard
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID               string    `bun:"id,pk" json:"id"`
	Title            string    `bun:"title,notnull" json:"title"`
	Description      string    `bun:"description,notnull" json:"description"`
	StartTime        time.Time `bun:"start_time,notnull" json:"start_time"`
	Venue            string    `bun:"venue,notnull" json:"venue"`
	Price            float64   `bun:"price,notnull" json:"price"`
	TotalTickets     int       `bun:"total_tickets,notnull" json:"total_tickets"`
	RemainingTickets int       `bun:"remaining_tickets,notnull" json:"remaining_tickets"`
	Category         string    `bun:"category,notnull" json:"category"`
	Image            string    `bun:"image,nullzero" json:"image,omitempty"`
	CreatedBy        string    `bun:"created_by,notnull" json:"created_by"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type EventRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	Venue        string    `json:"venue"`
	Price        *float64  `json:"price"`
	TotalTickets int       `json:"total_tickets"`
	Category     string    `json:"category"`
	Image        string    `json:"image"`
}

// EventFilter carries the listing query parameters.
type EventFilter struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

type EventList struct {
	Events      []Event `json:"events"`
	Total       int     `json:"total"`
	TotalPages  int     `json:"total_pages"`
	CurrentPage int     `json:"current_page"`
}

type CategoryCount struct {
	Category string `bun:"category" json:"category"`
	Count    int    `bun:"count" json:"count"`
}

type EventStats struct {
	TotalEvents    int             `json:"total_events"`
	UpcomingEvents int             `json:"upcoming_events"`
	PastEvents     int             `json:"past_events"`
	CategoryStats  []CategoryCount `json:"category_stats"`
}
