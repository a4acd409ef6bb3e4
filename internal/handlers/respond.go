package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tixmojo/internal/models"
)

// errorResponse is the JSON shape for every error this API returns
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain errors onto HTTP statuses. Payment
// failures deliberately collapse to a generic message; the diagnostic
// detail goes to the log only.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: validationErr.Reason,
			Field: validationErr.Field,
		})
		return
	}

	var payErr *models.PaymentError
	if errors.As(err, &payErr) {
		log.Printf("handlers: payment failed: %s", payErr.Reason)
		writeError(w, http.StatusPaymentRequired, "Payment could not be completed. Please check your card details and try again.")
		return
	}

	switch {
	case errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrTicketTypeNotFound),
		errors.Is(err, models.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidCart),
		errors.Is(err, models.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrSessionExpired):
		writeError(w, http.StatusGone, "checkout session has expired")
	case errors.Is(err, models.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "operation not allowed in the current checkout state")
	case errors.Is(err, models.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, "a submission is already in progress")
	default:
		log.Printf("handlers: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
