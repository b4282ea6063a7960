// Package payment creates Stripe checkout sessions for event tickets.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/eventpass/eventpass/internal/identity"
	"github.com/eventpass/eventpass/internal/model"
)

// Processor creates hosted checkout sessions.
type Processor struct {
	successURL string
	cancelURL  string
	priceCents int64
}

// New configures the Stripe client and returns a Processor.
func New(secretKey, successURL, cancelURL string, priceCents int64) *Processor {
	stripe.Key = secretKey
	return &Processor{
		successURL: successURL,
		cancelURL:  cancelURL,
		priceCents: priceCents,
	}
}

// CheckoutSession creates a card-payment checkout session for one ticket to
// the given event and returns its hosted URL. The idempotency key binds the
// session to (user, event, timestamp) so a stale session is never reused.
func (p *Processor) CheckoutSession(ctx context.Context, ident identity.Identity, ev *model.Event, ts int64) (string, error) {
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(ident.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(p.priceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Ticket: %s", ev.Title)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("%s-%s-%d", ident.UserID, ev.ID, ts))

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}
