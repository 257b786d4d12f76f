package payments

import "context"

// CheckoutInput describes one tour purchase to the payment processor.
type CheckoutInput struct {
	TourID        string
	TourName      string
	TourSummary   string
	Price         float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the opaque handle handed back to the client; no local
// state is kept about it.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (CheckoutSession, error)
}
