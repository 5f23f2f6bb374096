package pay

import (
	"context"
	"fmt"
	"math"

	"fabritrack/models"
)

// Settlement is the gateway's answer to "has this intent been paid".
type Settlement struct {
	Paid          bool
	TransactionID string
}

// Gateway is the boundary to the external payment processor. The
// engine never talks to the processor SDK directly.
type Gateway interface {
	// CreateIntent opens a payment intent for the order and returns
	// the client secret the frontend needs plus the intent id.
	CreateIntent(ctx context.Context, o *models.Order) (clientSecret, intentID string, err error)
	// CreateCheckoutSession returns a hosted-checkout redirect URL.
	CreateCheckoutSession(ctx context.Context, o *models.Order) (url string, err error)
	// VerifySettlement reports whether the intent has settled.
	VerifySettlement(ctx context.Context, intentID string) (Settlement, error)
}

// amountCents converts the order total to the processor's integer
// minor units.
func amountCents(total float64) int64 {
	return int64(math.Round(total * 100))
}

// StubGateway backs tests and local development without processor
// credentials. Every intent settles immediately.
type StubGateway struct {
	SiteURL string
}

func (g *StubGateway) CreateIntent(_ context.Context, o *models.Order) (string, string, error) {
	intentID := "pi_stub_" + o.ID.Hex()
	return intentID + "_secret", intentID, nil
}

func (g *StubGateway) CreateCheckoutSession(_ context.Context, o *models.Order) (string, error) {
	return fmt.Sprintf("%s/orders/%s?payment=success", g.SiteURL, o.ID.Hex()), nil
}

func (g *StubGateway) VerifySettlement(_ context.Context, intentID string) (Settlement, error) {
	return Settlement{Paid: true, TransactionID: intentID}, nil
}
