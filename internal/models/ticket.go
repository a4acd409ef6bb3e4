package models

import (
	"errors"
	"strings"
	"time"
)

// TicketType represents a purchasable class of ticket for an event.
// Catalog entries are created by organizers and are read-only to the
// checkout core.
type TicketType struct {
	ID          int       `json:"id" db:"id"`
	EventID     int       `json:"event_id" db:"event_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       int       `json:"price" db:"price"` // Price in cents
	Currency    string    `json:"currency" db:"currency"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Sold        int       `json:"sold" db:"sold"`
	SaleStart   time.Time `json:"sale_start" db:"sale_start"`
	SaleEnd     time.Time `json:"sale_end" db:"sale_end"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Validate validates the ticket type data
func (tt *TicketType) Validate() error {
	if err := validateTicketTypeName(tt.Name); err != nil {
		return err
	}

	if err := validateTicketTypePrice(tt.Price); err != nil {
		return err
	}

	if err := validateTicketTypeQuantity(tt.Quantity); err != nil {
		return err
	}

	if err := validateTicketTypeSalePeriod(tt.SaleStart, tt.SaleEnd); err != nil {
		return err
	}

	return nil
}

// validateTicketTypeName validates a ticket type name
func validateTicketTypeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("ticket type name is required")
	}

	if len(name) > 100 {
		return errors.New("ticket type name must be less than 100 characters")
	}

	return nil
}

// validateTicketTypePrice validates a ticket type price
func validateTicketTypePrice(price int) error {
	if price < 0 {
		return errors.New("ticket price cannot be negative")
	}

	// Maximum price of $10,000 (1,000,000 cents)
	if price > 1000000 {
		return errors.New("ticket price cannot exceed $10,000")
	}

	return nil
}

// validateTicketTypeQuantity validates a ticket type quantity
func validateTicketTypeQuantity(quantity int) error {
	if quantity <= 0 {
		return errors.New("ticket quantity must be greater than 0")
	}

	if quantity > 100000 {
		return errors.New("ticket quantity cannot exceed 100,000")
	}

	return nil
}

// validateTicketTypeSalePeriod validates a ticket type sale period
func validateTicketTypeSalePeriod(saleStart, saleEnd time.Time) error {
	if saleStart.IsZero() || saleEnd.IsZero() {
		return errors.New("sale period is required")
	}

	if saleStart.After(saleEnd) {
		return errors.New("sale start date must be before sale end date")
	}

	return nil
}

// Available returns the number of tickets still available for purchase
func (tt *TicketType) Available() int {
	available := tt.Quantity - tt.Sold
	if available < 0 {
		return 0
	}
	return available
}

// IsSoldOut returns true if all tickets are sold
func (tt *TicketType) IsSoldOut() bool {
	return tt.Sold >= tt.Quantity
}

// IsOnSale returns true if the ticket type is currently on sale
func (tt *TicketType) IsOnSale() bool {
	now := time.Now()
	return now.After(tt.SaleStart) && now.Before(tt.SaleEnd)
}

// IsAvailable returns true if tickets can be purchased right now
func (tt *TicketType) IsAvailable() bool {
	return !tt.IsSoldOut() && tt.IsOnSale()
}

// PriceInCurrency returns the price in the main currency unit as a float
func (tt *TicketType) PriceInCurrency() float64 {
	return float64(tt.Price) / 100.0
}
