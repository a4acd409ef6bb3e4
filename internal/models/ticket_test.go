package models

import (
	"testing"
	"time"
)

func onSaleTicketType() TicketType {
	return TicketType{
		ID:        1,
		EventID:   7,
		Name:      "General Admission",
		Price:     3900,
		Currency:  "AUD",
		Quantity:  100,
		Sold:      10,
		SaleStart: time.Now().Add(-time.Hour),
		SaleEnd:   time.Now().Add(24 * time.Hour),
	}
}

func TestTicketType_Available(t *testing.T) {
	tt := onSaleTicketType()
	if got := tt.Available(); got != 90 {
		t.Errorf("expected 90 available, got %d", got)
	}

	tt.Sold = 100
	if got := tt.Available(); got != 0 {
		t.Errorf("expected 0 available when sold out, got %d", got)
	}
	if !tt.IsSoldOut() {
		t.Error("expected sold out")
	}

	// Oversold data must not report negative availability.
	tt.Sold = 105
	if got := tt.Available(); got != 0 {
		t.Errorf("expected 0 available when oversold, got %d", got)
	}
}

func TestTicketType_IsAvailable(t *testing.T) {
	tt := onSaleTicketType()
	if !tt.IsAvailable() {
		t.Error("expected ticket type to be available")
	}

	notYet := onSaleTicketType()
	notYet.SaleStart = time.Now().Add(time.Hour)
	if notYet.IsAvailable() {
		t.Error("expected ticket type before sale start to be unavailable")
	}

	ended := onSaleTicketType()
	ended.SaleEnd = time.Now().Add(-time.Minute)
	if ended.IsAvailable() {
		t.Error("expected ticket type after sale end to be unavailable")
	}
}

func TestTicketType_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*TicketType)
		wantErr bool
	}{
		{"valid", func(tt *TicketType) {}, false},
		{"empty name", func(tt *TicketType) { tt.Name = "  " }, true},
		{"negative price", func(tt *TicketType) { tt.Price = -1 }, true},
		{"price too high", func(tt *TicketType) { tt.Price = 1000001 }, true},
		{"zero quantity", func(tt *TicketType) { tt.Quantity = 0 }, true},
		{"sale period inverted", func(tt *TicketType) {
			tt.SaleStart = tt.SaleEnd.Add(time.Hour)
		}, true},
		{"missing sale period", func(tt *TicketType) {
			tt.SaleStart = time.Time{}
			tt.SaleEnd = time.Time{}
		}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := onSaleTicketType()
			tc.modify(&tt)

			err := tt.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTicketType_PriceInCurrency(t *testing.T) {
	tt := onSaleTicketType()
	if got := tt.PriceInCurrency(); got != 39.00 {
		t.Errorf("expected 39.00, got %.2f", got)
	}
}
