package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tixmojo/internal/models"
)

// ProcessorConfig represents external payment processor configuration
type ProcessorConfig struct {
	BaseURL     string
	SecretKey   string
	Environment string // "test" or "live"
}

// ProcessorClient talks to the external payment processor over HTTPS.
// The checkout core never sees processor internals; errors surface as
// diagnostics through PaymentError only.
type ProcessorClient struct {
	config ProcessorConfig
	client *http.Client
}

// NewProcessorClient creates a new processor client
func NewProcessorClient(config ProcessorConfig) *ProcessorClient {
	return &ProcessorClient{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Intent represents a charge intent created for a checkout session
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// ChargeResult represents the processor's verdict on a charge
type ChargeResult struct {
	Status    string `json:"status"` // "succeeded", "declined", "pending"
	Reference string `json:"reference"`
}

// processorError represents an error response from the processor
type processorError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *processorError) Error() string {
	return fmt.Sprintf("processor error %s: %s", e.Code, e.Message)
}

// CreateIntent creates a charge intent for a session and amount
func (c *ProcessorClient) CreateIntent(ctx context.Context, sessionID string, amount int, currency string) (*Intent, error) {
	payload := map[string]any{
		"session_id": sessionID,
		"amount":     amount,
		"currency":   currency,
	}

	intent := &Intent{}
	if err := c.post(ctx, "/v1/intents", payload, intent); err != nil {
		return nil, err
	}

	return intent, nil
}

// ConfirmCharge submits card details against a charge intent. The card
// travels straight to the processor and is not retained.
func (c *ProcessorClient) ConfirmCharge(ctx context.Context, clientSecret string, card *models.PaymentCard) (*ChargeResult, error) {
	payload := map[string]any{
		"client_secret": clientSecret,
		"card": map[string]string{
			"cardholder_name": card.CardholderName,
			"number":          card.Number,
			"expiry":          card.Expiry,
			"cvv":             card.CVV,
			"postal_code":     card.PostalCode,
		},
	}

	result := &ChargeResult{}
	if err := c.post(ctx, "/v1/charges/confirm", payload, result); err != nil {
		return nil, err
	}

	return result, nil
}

// post sends an authenticated JSON request and decodes the response
func (c *ProcessorClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		procErr := &processorError{}
		if err := json.Unmarshal(respBody, procErr); err == nil && procErr.Message != "" {
			return procErr
		}
		return fmt.Errorf("processor returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
