// Package payment opens payment intents with Stripe and PayPal. Capturing
// the payment is left to the device; the purchase is recorded afterwards
// through the order endpoints.
package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const (
	currency = "usd"
	company  = "ELearning"
)

// Intent is the amount to charge, in cents.
type Intent struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// NewStripe builds a Stripe client. A non empty url replaces the Stripe API
// endpoint, which is how tests and local mocks are wired in.
func NewStripe(secret, url string) *stripecl.API {
	if url == "" {
		return client(secret, nil)
	}

	b := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return client(secret, &stripe.Backends{API: b, Connect: b, Uploads: b})
}

func client(secret string, backends *stripe.Backends) *stripecl.API {
	return stripecl.New(secret, backends)
}

func NewStripeIntent(ctx context.Context, strp *stripecl.API, in Intent) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("company", company)

	pi, err := strp.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating stripe payment intent: %w", err)
	}
	return pi, nil
}

func NewPaypalOrder(ctx context.Context, pp *paypal.Client, in Intent) (*paypal.Order, error) {
	units := []paypal.PurchaseUnitRequest{{
		Amount: &paypal.PurchaseUnitAmount{
			Currency: "USD",
			Value:    Dollars(in.Amount),
		},
		Description: company,
	}}

	ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
	if err != nil {
		return nil, fmt.Errorf("creating paypal order: %w", err)
	}
	return ord, nil
}

// Dollars formats an amount of cents.
func Dollars(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func HandleStripePublishableKey(key string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		resp := struct {
			PublishableKey string `json:"publishablekey"`
		}{key}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleStripe(strp *stripecl.API) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in Intent
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		pi, err := NewStripeIntent(ctx, strp, in)
		if err != nil {
			return weberr.Upstream(err)
		}

		resp := struct {
			Success      bool   `json:"success"`
			ClientSecret string `json:"client_secret"`
		}{true, pi.ClientSecret}
		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}

func HandlePaypal(pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in Intent
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		ord, err := NewPaypalOrder(ctx, pp, in)
		if err != nil {
			return weberr.Upstream(err)
		}

		resp := struct {
			Success bool   `json:"success"`
			OrderID string `json:"order_id"`
		}{true, ord.ID}
		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}
