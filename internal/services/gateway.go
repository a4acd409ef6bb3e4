package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tixmojo/internal/models"
)

// Confirmation is the normalized result every gateway strategy returns
// on success.
type Confirmation struct {
	Reference string `json:"reference"`
}

// PaymentGateway confirms a charge for a checkout session. Card details
// exist only for the duration of the call; implementations must not
// retain them. Failures are reported as *models.PaymentError.
type PaymentGateway interface {
	Confirm(ctx context.Context, session *models.CheckoutSession, card *models.PaymentCard) (*Confirmation, error)
}

// NewPaymentGateway selects the gateway strategy once at construction:
// the delegated processor when credentials are configured, otherwise the
// simulated gateway.
func NewPaymentGateway(cfg ProcessorConfig) PaymentGateway {
	if cfg.SecretKey != "" {
		log.Printf("payment gateway: using delegated processor (%s)", cfg.BaseURL)
		return NewProcessorGateway(NewProcessorClient(cfg))
	}

	log.Println("payment gateway: using simulated confirmation (no processor credentials)")
	return NewSimulatedGateway(2 * time.Second)
}

// SimulatedGateway approves every charge after a fixed artificial delay,
// returning a synthetic reference derived from the session's client
// secret.
type SimulatedGateway struct {
	delay time.Duration
}

// NewSimulatedGateway creates a simulated gateway with the given delay
func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	return &SimulatedGateway{delay: delay}
}

// Confirm simulates a successful charge
func (g *SimulatedGateway) Confirm(ctx context.Context, session *models.CheckoutSession, card *models.PaymentCard) (*Confirmation, error) {
	select {
	case <-ctx.Done():
		return nil, models.NewPaymentError(ctx.Err().Error())
	case <-time.After(g.delay):
	}

	return &Confirmation{
		Reference: "sim_" + strings.TrimPrefix(session.ClientSecret, "sec_"),
	}, nil
}

// ProcessorGateway delegates confirmation to an external payment
// processor: it creates a charge intent for the session, submits the
// card directly to the processor, and normalizes the outcome. The card
// payload never touches the session store.
type ProcessorGateway struct {
	client *ProcessorClient
}

// NewProcessorGateway creates a gateway over a processor client
func NewProcessorGateway(client *ProcessorClient) *ProcessorGateway {
	return &ProcessorGateway{client: client}
}

// Confirm runs the intent-then-charge flow against the processor
func (g *ProcessorGateway) Confirm(ctx context.Context, session *models.CheckoutSession, card *models.PaymentCard) (*Confirmation, error) {
	totals := session.Totals()

	intent, err := g.client.CreateIntent(ctx, session.ID, totals.Total, session.Cart.Currency())
	if err != nil {
		return nil, models.NewPaymentError(fmt.Sprintf("create intent: %v", err))
	}

	result, err := g.client.ConfirmCharge(ctx, intent.ClientSecret, card)
	if err != nil {
		return nil, models.NewPaymentError(fmt.Sprintf("confirm charge: %v", err))
	}

	if result.Status != "succeeded" {
		return nil, models.NewPaymentError(fmt.Sprintf("processor status %q", result.Status))
	}

	return &Confirmation{Reference: result.Reference}, nil
}
