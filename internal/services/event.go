package services

import (
	"fmt"

	"tixmojo/internal/models"
	"tixmojo/internal/repositories"
)

// EventRepositoryInterface defines the event storage operations the
// catalog service needs
type EventRepositoryInterface interface {
	GetByID(id int) (*models.Event, error)
	GetFeatured(limit int) ([]*models.Event, error)
	GetUpcoming(limit int) ([]*models.Event, error)
	Search(filters repositories.EventSearchFilters) ([]*models.Event, error)
}

// EventService handles event discovery and retrieval
type EventService struct {
	events EventRepositoryInterface
}

// NewEventService creates a new event service
func NewEventService(events EventRepositoryInterface) *EventService {
	return &EventService{events: events}
}

// GetEvent retrieves a single published event. Unpublished events are
// hidden from shoppers even when the ID is known.
func (s *EventService) GetEvent(id int) (*models.Event, error) {
	event, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !event.IsPublished() {
		return nil, models.ErrEventNotFound
	}

	return event, nil
}

// GetFeaturedEvents retrieves events for the home page carousel
func (s *EventService) GetFeaturedEvents(limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 8
	}

	events, err := s.events.GetFeatured(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get featured events: %w", err)
	}

	return events, nil
}

// GetUpcomingEvents retrieves published events ordered by start date
func (s *EventService) GetUpcomingEvents(limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	events, err := s.events.GetUpcoming(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming events: %w", err)
	}

	return events, nil
}

// SearchEvents retrieves published events matching the filters
func (s *EventService) SearchEvents(filters repositories.EventSearchFilters) ([]*models.Event, error) {
	events, err := s.events.Search(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	return events, nil
}
