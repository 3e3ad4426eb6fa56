// internal/provider/stripe.go
package provider

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// StripeClient implements Client on top of Stripe Checkout. The checkout
// session id doubles as the payment id our webhook later reconciles.
type StripeClient struct {
	successURL string
	cancelURL  string
}

// NewStripeClient configures the Stripe SDK with the given API key and
// returns a client. The redirect URLs are where Stripe sends the user after
// paying or aborting.
func NewStripeClient(apiKey, successURL, cancelURL string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{successURL: successURL, cancelURL: cancelURL}
}

// CreatePayment creates a single-item checkout session for the deposit
// amount. The idempotency key makes a retried call return the same session
// instead of opening a second one.
func (c *StripeClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	// Stripe wants the amount in the smallest currency unit.
	unitAmount := req.Amount.Shift(2).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(unitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(fmt.Sprintf("%d", req.UserID)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	return &CreatePaymentResult{
		PaymentID:   sess.ID,
		RedirectURL: sess.URL,
	}, nil
}
