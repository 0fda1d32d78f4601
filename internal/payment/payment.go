// Package payment wraps the external payment provider behind a small
// interface. Amounts are integers in minor currency units end-to-end;
// the provider's ledger is authoritative for what was actually
// authorized, which is why booking creation re-reads the intent
// instead of trusting anything client-held.
package payment

import (
    "context"

    "github.com/stripe/stripe-go/v79"
    "github.com/stripe/stripe-go/v79/client"
)

// Intent is the slice of a payment intent the core cares about.
type Intent struct {
    ID           string
    ClientSecret string
    AmountCents  int64
}

// Provider is the collaborator contract for the payment service.
type Provider interface {
    CreatePaymentIntent(ctx context.Context, amountCents int64, currency string) (Intent, error)
    UpdatePaymentIntent(ctx context.Context, id string, amountCents int64) (Intent, error)
    RetrievePaymentIntent(ctx context.Context, id string) (Intent, error)
    Refund(ctx context.Context, paymentIntentID string) (string, error)
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
    sc *client.API
}

// NewStripeProvider builds a provider with the given secret key.
func NewStripeProvider(secretKey string) *StripeProvider {
    sc := &client.API{}
    sc.Init(secretKey, nil)
    return &StripeProvider{sc: sc}
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string) (Intent, error) {
    pi, err := p.sc.PaymentIntents.New(&stripe.PaymentIntentParams{
        Params:   stripe.Params{Context: ctx},
        Amount:   stripe.Int64(amountCents),
        Currency: stripe.String(currency),
        AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
            Enabled: stripe.Bool(true),
        },
    })
    if err != nil {
        return Intent{}, err
    }
    return fromStripe(pi), nil
}

func (p *StripeProvider) UpdatePaymentIntent(ctx context.Context, id string, amountCents int64) (Intent, error) {
    pi, err := p.sc.PaymentIntents.Update(id, &stripe.PaymentIntentParams{
        Params: stripe.Params{Context: ctx},
        Amount: stripe.Int64(amountCents),
    })
    if err != nil {
        return Intent{}, err
    }
    return fromStripe(pi), nil
}

func (p *StripeProvider) RetrievePaymentIntent(ctx context.Context, id string) (Intent, error) {
    pi, err := p.sc.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
        Params: stripe.Params{Context: ctx},
    })
    if err != nil {
        return Intent{}, err
    }
    return fromStripe(pi), nil
}

func (p *StripeProvider) Refund(ctx context.Context, paymentIntentID string) (string, error) {
    ref, err := p.sc.Refunds.New(&stripe.RefundParams{
        Params:        stripe.Params{Context: ctx},
        PaymentIntent: stripe.String(paymentIntentID),
    })
    if err != nil {
        return "", err
    }
    return ref.ID, nil
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
    return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, AmountCents: pi.Amount}
}
