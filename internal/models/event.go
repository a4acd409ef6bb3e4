package models

import (
	"errors"
	"strings"
	"time"
)

// EventStatus represents the publication status of an event
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// Event represents a listed event in the catalog
type Event struct {
	ID          int         `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Venue       string      `json:"venue" db:"venue"`
	City        string      `json:"city" db:"city"`
	Category    string      `json:"category" db:"category"`
	ImageURL    string      `json:"image_url" db:"image_url"`
	StartDate   time.Time   `json:"start_date" db:"start_date"`
	EndDate     time.Time   `json:"end_date" db:"end_date"`
	Status      EventStatus `json:"status" db:"status"`
	Featured    bool        `json:"featured" db:"featured"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// Validate validates the event data
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("event title is required")
	}

	if len(e.Title) > 200 {
		return errors.New("event title must be less than 200 characters")
	}

	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return errors.New("event dates are required")
	}

	if e.StartDate.After(e.EndDate) {
		return errors.New("event start date must be before end date")
	}

	switch e.Status {
	case EventDraft, EventPublished, EventCancelled:
	default:
		return errors.New("invalid event status")
	}

	return nil
}

// IsPublished returns true if the event is visible to shoppers
func (e *Event) IsPublished() bool {
	return e.Status == EventPublished
}

// IsUpcoming returns true if the event has not started yet
func (e *Event) IsUpcoming() bool {
	return time.Now().Before(e.StartDate)
}
