package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"autonoleggio/internal/logger"
	"autonoleggio/internal/service"
)

// StripeWebhookHandler receives payment events from Stripe. Signature
// verification makes the endpoint safe to expose without auth.
type StripeWebhookHandler struct {
	secret   string
	bookings *service.BookingService
	log      logger.Logger
}

func NewStripeWebhookHandler(secret string, bookings *service.BookingService, log logger.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{secret: secret, bookings: bookings, log: log}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Errorf("error reading webhook body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.secret)
	if err != nil {
		h.log.Warnf("webhook signature verification failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil || sess.ID == "" {
			h.log.Errorf("malformed checkout.session.completed payload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		code, err := h.bookings.ConfirmOnlinePayment(r.Context(), sess.ID)
		if err != nil {
			h.log.Errorf("could not record payment for session %s: %v", sess.ID, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h.log.Infof("checkout completed for reservation %s", code)

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			h.log.Errorf("malformed charge.refunded payload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			break
		}
		if err := h.bookings.RecordExternalRefund(r.Context(), charge.PaymentIntent.ID); err != nil {
			h.log.Errorf("could not record refund for intent %s: %v", charge.PaymentIntent.ID, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	default:
		h.log.Debugf("unhandled stripe event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// GetReservationBySession lets the payment confirmation page resolve
// the reservation behind its checkout session id.
func (h *StripeWebhookHandler) GetReservationBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id required"})
		return
	}
	reservation, err := h.bookings.GetReservationBySession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}
