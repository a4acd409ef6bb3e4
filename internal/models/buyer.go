package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// Person names: letters, spaces, hyphens and apostrophes only
	nameRegex  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z '\-]*$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	digitRegex = regexp.MustCompile(`^[0-9]+$`)
)

// BuyerInfo represents the contact details collected in the first
// checkout step. Signed-in users get these prefilled; guest checkout
// supplies them directly.
type BuyerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Validate checks all buyer fields and returns the first field-level
// failure found.
func (b *BuyerInfo) Validate() error {
	if err := validatePersonName("first_name", b.FirstName, 2, 50); err != nil {
		return err
	}

	if err := validatePersonName("last_name", b.LastName, 2, 50); err != nil {
		return err
	}

	if b.Email == "" || len(b.Email) > 100 || !emailRegex.MatchString(b.Email) {
		return NewValidationError("email", "a valid email address is required")
	}

	phone := normalizePhone(b.Phone)
	if len(phone) < 5 || len(phone) > 15 || !digitRegex.MatchString(phone) {
		return NewValidationError("phone", "phone number must be 5 to 15 digits")
	}

	return nil
}

// validatePersonName validates a name field against the shared charset
// and length rules.
func validatePersonName(field, value string, min, max int) error {
	value = strings.TrimSpace(value)
	if len(value) < min || len(value) > max {
		return NewValidationError(field, fmt.Sprintf("must be %d to %d characters", min, max))
	}

	if !nameRegex.MatchString(value) {
		return NewValidationError(field, "only letters, spaces, hyphens and apostrophes are allowed")
	}

	return nil
}

// normalizePhone strips common separators before digit validation
func normalizePhone(phone string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(phone)
}

// CardBrand identifies a detected card network
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandDiscover   CardBrand = "discover"
	BrandUnknown    CardBrand = "unknown"
)

// brandLengths maps each brand to its valid card number lengths
var brandLengths = map[CardBrand][]int{
	BrandVisa:       {13, 16, 19},
	BrandMastercard: {16},
	BrandAmex:       {15},
	BrandDiscover:   {16},
}

// PaymentCard represents the raw card details collected in the payment
// step. This value only ever travels to the payment gateway; it is never
// persisted. Only the masked form survives into a session.
type PaymentCard struct {
	CardholderName string `json:"cardholder_name"`
	Number         string `json:"number"`
	Expiry         string `json:"expiry"` // MM/YY
	CVV            string `json:"cvv"`
	PostalCode     string `json:"postal_code"`
}

// DetectCardBrand identifies the card network from the number prefix
func DetectCardBrand(number string) CardBrand {
	switch {
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return BrandAmex
	case strings.HasPrefix(number, "4"):
		return BrandVisa
	case strings.HasPrefix(number, "6011"), strings.HasPrefix(number, "65"):
		return BrandDiscover
	}

	if len(number) >= 2 {
		if prefix := number[:2]; prefix >= "51" && prefix <= "55" {
			return BrandMastercard
		}
	}
	if len(number) >= 4 {
		if prefix := number[:4]; prefix >= "2221" && prefix <= "2720" {
			return BrandMastercard
		}
	}

	return BrandUnknown
}

// Validate checks all card fields and returns the first field-level
// failure found. The number must match a known brand and that brand's
// length rules; the expiry must not be in the past.
func (c *PaymentCard) Validate(now time.Time) error {
	if err := validatePersonName("cardholder_name", c.CardholderName, 3, 100); err != nil {
		return err
	}

	number := strings.ReplaceAll(strings.TrimSpace(c.Number), " ", "")
	if !digitRegex.MatchString(number) {
		return NewValidationError("card_number", "card number must contain digits only")
	}

	brand := DetectCardBrand(number)
	if brand == BrandUnknown {
		return NewValidationError("card_number", "unrecognised card number")
	}

	validLength := false
	for _, l := range brandLengths[brand] {
		if len(number) == l {
			validLength = true
			break
		}
	}
	if !validLength {
		return NewValidationError("card_number", fmt.Sprintf("invalid card number length for %s", brand))
	}

	if err := validateCardExpiry(c.Expiry, now); err != nil {
		return err
	}

	if len(c.CVV) < 3 || len(c.CVV) > 4 || !digitRegex.MatchString(c.CVV) {
		return NewValidationError("cvv", "security code must be 3 or 4 digits")
	}

	postal := strings.TrimSpace(c.PostalCode)
	if len(postal) < 3 || len(postal) > 10 {
		return NewValidationError("postal_code", "postal code must be 3 to 10 characters")
	}

	return nil
}

// validateCardExpiry checks an MM/YY expiry. A card is valid through the
// last day of its expiry month.
func validateCardExpiry(expiry string, now time.Time) error {
	parsed, err := time.Parse("01/06", expiry)
	if err != nil {
		return NewValidationError("expiry", "expiry date must be in MM/YY format")
	}

	endOfMonth := parsed.AddDate(0, 1, 0)
	if !now.Before(endOfMonth) {
		return NewValidationError("expiry", "card has expired")
	}

	return nil
}

// Mask reduces the card to the representation that is safe to persist:
// the brand and the last four digits, nothing else.
func (c *PaymentCard) Mask() *MaskedCard {
	number := strings.ReplaceAll(strings.TrimSpace(c.Number), " ", "")

	last4 := number
	if len(number) > 4 {
		last4 = number[len(number)-4:]
	}

	return &MaskedCard{
		Brand: DetectCardBrand(number),
		Last4: last4,
	}
}

// MaskedCard is the only payment representation a CheckoutSession ever
// stores. It cannot be reversed into a card number.
type MaskedCard struct {
	Brand CardBrand `json:"brand"`
	Last4 string    `json:"last4"`
}

// String formats the masked card for display, e.g. "visa •••• 4242"
func (m *MaskedCard) String() string {
	return fmt.Sprintf("%s •••• %s", m.Brand, m.Last4)
}
