package booking_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/bookings"
	"ms-booking/internal/utils"
)

// CreatePaymentIntent creates a Stripe payment intent for a pending booking.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())

	var req struct {
		BookingID string `json:"booking_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if req.BookingID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("validation failed", "booking_id is required"))
		return
	}

	intent, err := h.BookingService.CreatePaymentIntent(r.Context(), *claims, req.BookingID)
	if err != nil {
		h.writeError(w, err, "CreatePaymentIntent")
		return
	}

	response := struct {
		ClientSecret    string `json:"client_secret"`
		PaymentIntentID string `json:"payment_intent_id"`
	}{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("payment intent created", response))
}

// GetPaymentStatus reports the state of a payment intent.
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentIntentID := chi.URLParam(r, "paymentIntentId")

	intent, err := h.BookingService.GetPaymentStatus(paymentIntentID)
	if err != nil {
		h.writeError(w, err, "GetPaymentStatus")
		return
	}

	response := struct {
		Status   string  `json:"status"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}{
		Status:   string(intent.Status),
		Amount:   float64(intent.Amount) / 100,
		Currency: string(intent.Currency),
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("payment status retrieved", response))
}

// StripeWebhook handles provider-signed webhook deliveries.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.BookingService.HandleStripeWebhook(r); err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to process webhook: %v", err))

		if webhookErr, ok := err.(*bookings.WebhookError); ok {
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}

		http.Error(w, "Webhook processing error", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}
