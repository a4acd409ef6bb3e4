package services

import (
	"fmt"
	"strings"

	"tixmojo/internal/models"
)

// PromoRule maps a promo code pattern to a discount rate. Prefix rules
// match any code starting with the pattern; exact rules match the whole
// code. Matching is case-insensitive.
type PromoRule struct {
	Pattern string
	Prefix  bool
	Rate    float64
}

// DefaultPromoRules returns the built-in rule table. In production the
// table could be server-supplied; evaluation works the same either way.
func DefaultPromoRules() []PromoRule {
	return []PromoRule{
		{Pattern: "TIXMOJO", Prefix: true, Rate: 0.10},
		{Pattern: "WELCOME", Rate: 0.15},
	}
}

// PromoEvaluator resolves promo codes to discount rates against a fixed
// rule table. Evaluation is deterministic and has no side effects.
type PromoEvaluator struct {
	rules []PromoRule
}

// NewPromoEvaluator creates an evaluator over the given rule table
func NewPromoEvaluator(rules []PromoRule) *PromoEvaluator {
	return &PromoEvaluator{rules: rules}
}

// Evaluate resolves a promo code to a PromoApplication. Unknown codes
// yield an invalid application with a zero rate.
func (e *PromoEvaluator) Evaluate(code string) models.PromoApplication {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	for _, rule := range e.rules {
		pattern := strings.ToUpper(rule.Pattern)

		matched := normalized == pattern
		if rule.Prefix {
			matched = strings.HasPrefix(normalized, pattern)
		}

		if matched {
			return models.PromoApplication{
				Code:         normalized,
				IsValid:      true,
				DiscountRate: rule.Rate,
				Message:      fmt.Sprintf("Promo applied: %.0f%% off", rule.Rate*100),
			}
		}
	}

	return models.PromoApplication{
		Code:    normalized,
		Message: "Invalid promo code",
	}
}
