package models

import "math"

// CartLine represents one ticket type in the cart with its chosen quantity
type CartLine struct {
	TicketType *TicketType `json:"ticket_type"`
	Quantity   int         `json:"quantity"`
}

// Subtotal returns the line amount in cents
func (l *CartLine) Subtotal() int {
	return l.TicketType.Price * l.Quantity
}

// Cart represents the shopper's ticket selection for a single event.
// Lines keep insertion order for stable display and are unique per
// ticket type. The cart lives in the browsing session only; committing
// to checkout snapshots it into a CheckoutSession.
type Cart struct {
	EventID    int         `json:"event_id"`
	EventTitle string      `json:"event_title"`
	Lines      []*CartLine `json:"lines"`
	ServiceFee int         `json:"service_fee"` // Fixed add-on in cents
}

// Totals represents the computed amounts for a cart, all in cents
type Totals struct {
	Subtotal       int `json:"subtotal"`
	ServiceFee     int `json:"service_fee"`
	DiscountAmount int `json:"discount_amount"`
	Total          int `json:"total"`
}

// AddLine adds one ticket of the given type to the cart. A new line
// starts at quantity 1; an existing line is incremented. The quantity
// never exceeds the tickets still available.
func (c *Cart) AddLine(tt *TicketType) {
	for _, line := range c.Lines {
		if line.TicketType.ID == tt.ID {
			if line.Quantity < tt.Available() {
				line.Quantity++
			}
			return
		}
	}

	if tt.Available() < 1 {
		return
	}

	c.Lines = append(c.Lines, &CartLine{TicketType: tt, Quantity: 1})
}

// SetQuantity sets the quantity for a ticket type. Zero removes the
// line, quantities above the available count are clamped down, and a
// negative quantity is rejected with ErrInvalidQuantity.
func (c *Cart) SetQuantity(ticketTypeID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	for i, line := range c.Lines {
		if line.TicketType.ID != ticketTypeID {
			continue
		}

		if quantity == 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}

		if available := line.TicketType.Available(); quantity > available {
			quantity = available
		}
		line.Quantity = quantity
		return nil
	}

	return nil
}

// Line returns the cart line for a ticket type, or nil if absent
func (c *Cart) Line(ticketTypeID int) *CartLine {
	for _, line := range c.Lines {
		if line.TicketType.ID == ticketTypeID {
			return line
		}
	}
	return nil
}

// IsEmpty returns true if the cart holds no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Currency returns the cart currency, taken from its first line. Carts
// only ever hold ticket types from one event, which share a currency.
func (c *Cart) Currency() string {
	if len(c.Lines) == 0 {
		return "AUD"
	}
	return c.Lines[0].TicketType.Currency
}

// Subtotal returns the sum of all line amounts in cents
func (c *Cart) Subtotal() int {
	var subtotal int
	for _, line := range c.Lines {
		subtotal += line.Subtotal()
	}
	return subtotal
}

// ComputeTotals computes the cart amounts for a discount rate in [0, 1).
// total = subtotal + serviceFee - subtotal*rate. The discount term is the
// only fractional value; it is rounded half-up exactly once, so no
// intermediate rounding error can accumulate.
func (c *Cart) ComputeTotals(discountRate float64) Totals {
	subtotal := c.Subtotal()
	discount := roundHalfUp(float64(subtotal) * discountRate)

	return Totals{
		Subtotal:       subtotal,
		ServiceFee:     c.ServiceFee,
		DiscountAmount: discount,
		Total:          subtotal + c.ServiceFee - discount,
	}
}

// Snapshot returns a deep copy of the cart for freezing into a checkout
// session. Mutating the live cart afterwards does not affect the copy.
func (c *Cart) Snapshot() *Cart {
	copied := &Cart{
		EventID:    c.EventID,
		EventTitle: c.EventTitle,
		ServiceFee: c.ServiceFee,
		Lines:      make([]*CartLine, 0, len(c.Lines)),
	}

	for _, line := range c.Lines {
		tt := *line.TicketType
		copied.Lines = append(copied.Lines, &CartLine{TicketType: &tt, Quantity: line.Quantity})
	}

	return copied
}

// roundHalfUp rounds cents half-up to the nearest integer
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
