package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

// StripeProvider creates hosted checkout sessions. Amounts are sent in
// cents, matching Stripe's smallest-unit convention.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(in.CustomerEmail),
		ClientReferenceID: stripe.String(in.TourID),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(int64(in.Price * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(in.TourName + " Tour"),
						Description: stripe.String(in.TourSummary),
					},
				},
			},
		},
	}
	params.Context = ctx

	s, err := session.New(params)

	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	return CheckoutSession{ID: s.ID, RedirectURL: s.URL}, nil
}
