package services

import (
	"fmt"

	"tixmojo/internal/models"
)

// TicketRepositoryInterface defines the ticket type storage operations
// the catalog service needs
type TicketRepositoryInterface interface {
	GetByID(id int) (*models.TicketType, error)
	GetByEvent(eventID int) ([]*models.TicketType, error)
	RecordSale(ticketTypeID, quantity int) error
}

// TicketService handles ticket type retrieval and sale recording
type TicketService struct {
	tickets TicketRepositoryInterface
}

// NewTicketService creates a new ticket service
func NewTicketService(tickets TicketRepositoryInterface) *TicketService {
	return &TicketService{tickets: tickets}
}

// GetTicketType retrieves a single ticket type
func (s *TicketService) GetTicketType(id int) (*models.TicketType, error) {
	return s.tickets.GetByID(id)
}

// ListTicketTypes retrieves the ticket types for an event, cheapest
// first
func (s *TicketService) ListTicketTypes(eventID int) ([]*models.TicketType, error) {
	ticketTypes, err := s.tickets.GetByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types for event %d: %w", eventID, err)
	}

	return ticketTypes, nil
}

// RecordSale increments the sold count for a ticket type after a
// completed checkout
func (s *TicketService) RecordSale(ticketTypeID, quantity int) error {
	if quantity <= 0 {
		return models.ErrInvalidQuantity
	}

	if err := s.tickets.RecordSale(ticketTypeID, quantity); err != nil {
		return fmt.Errorf("failed to record sale for ticket type %d: %w", ticketTypeID, err)
	}

	return nil
}
