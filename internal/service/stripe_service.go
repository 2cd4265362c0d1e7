package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"

	"autonoleggio/internal/logger"
)

type StripeService struct {
	log logger.Logger
}

func NewStripeService(log logger.Logger) *StripeService {
	return &StripeService{log: log}
}

// CreateCheckoutSession opens a Stripe Checkout session for a rental
// payment and returns its URL and id. The redirect pages live on the
// booking frontend, under the customer's language.
func (s *StripeService) CreateCheckoutSession(amount int64, currency, description, customerEmail, lang string) (string, string, error) {
	baseURL := os.Getenv("FRONTEND_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(fmt.Sprintf("%s/%s/booking/confirmation/?session_id={CHECKOUT_SESSION_ID}", baseURL, lang)),
		CancelURL:     stripe.String(fmt.Sprintf("%s/%s/booking/failed/?session_id={CHECKOUT_SESSION_ID}", baseURL, lang)),
		CustomerEmail: stripe.String(customerEmail),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("error creating checkout session: %w", err)
	}
	s.log.Infof("created checkout session %s for %s", sess.ID, customerEmail)
	return sess.URL, sess.ID, nil
}

// SessionIDForPaymentIntent finds the Checkout session a payment intent
// belongs to. Refund webhooks carry only the intent.
func (s *StripeService) SessionIDForPaymentIntent(paymentIntentID string) (string, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Limit = stripe.Int64(1)

	iter := session.List(params)
	for iter.Next() {
		return iter.CheckoutSession().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("error listing checkout sessions for intent %s: %w", paymentIntentID, err)
	}
	return "", fmt.Errorf("no checkout session found for payment intent %s", paymentIntentID)
}

// RefundPaymentBySessionID refunds the payment behind a Checkout
// session, for cancellations inside the free-cancellation window.
func (s *StripeService) RefundPaymentBySessionID(sessionID string) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return fmt.Errorf("error fetching checkout session %s: %w", sessionID, err)
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return fmt.Errorf("no payment intent found for session %s", sessionID)
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
	}
	if _, err = refund.New(params); err != nil {
		return fmt.Errorf("error refunding session %s: %w", sessionID, err)
	}
	s.log.Infof("refunded payment for checkout session %s", sessionID)
	return nil
}
