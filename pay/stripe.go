package pay

import (
	"context"
	"fmt"

	"fabritrack/models"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// StripeGateway is the production Gateway implementation.
type StripeGateway struct {
	SiteURL string
}

// NewStripeGateway sets the account key once; the stripe client is
// package-global by SDK design.
func NewStripeGateway(secretKey, siteURL string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{SiteURL: siteURL}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, o *models.Order) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(amountCents(o.TotalPrice)),
		Currency:           stripe.String(string(stripe.CurrencyUSD)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.AddMetadata("orderId", o.ID.Hex())

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", "", err
	}
	return pi.ClientSecret, pi.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, o *models.Order) (string, error) {
	orderURL := fmt.Sprintf("%s/orders/%s", g.SiteURL, o.ID.Hex())
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(orderURL + "?payment=success"),
		CancelURL:  stripe.String(orderURL + "?payment=cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(amountCents(o.TotalPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(o.ProductTitle),
				},
			},
		}},
	}
	params.AddMetadata("orderId", o.ID.Hex())

	s, err := session.New(params)
	if err != nil {
		return "", err
	}
	return s.URL, nil
}

func (g *StripeGateway) VerifySettlement(ctx context.Context, intentID string) (Settlement, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return Settlement{}, err
	}

	txn := pi.ID
	if pi.LatestCharge != nil {
		txn = pi.LatestCharge.ID
	}
	return Settlement{
		Paid:          pi.Status == stripe.PaymentIntentStatusSucceeded,
		TransactionID: txn,
	}, nil
}
