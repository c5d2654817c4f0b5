package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/irsalhamdi/e-learning/core/order"
	"github.com/irsalhamdi/e-learning/local"
	"github.com/sirupsen/logrus"
)

var ErrEmptyCart = errors.New("cart is empty")

// PaymentConfirmer collects the payment for an intent on the device and
// returns the provider payload to attach to the orders.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, clientSecret string) (json.RawMessage, error)
}

type Receipt struct {
	Cents        int64
	Orders       []order.Order
	AlreadyOwned []string
}

type Checkout struct {
	Store   *local.Store
	API     *Client
	Payment PaymentConfirmer
	Log     logrus.FieldLogger
}

// Run charges the cart courses the user does not own yet and records one
// order per course. The cart is cleared only when every course ended up
// owned; any other failure leaves it untouched so the checkout can be
// retried without paying twice for what the failed attempt already bought.
func (co *Checkout) Run(ctx context.Context, userID string) (Receipt, error) {
	items, err := co.Store.Cart(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	if len(items) == 0 {
		return Receipt{}, ErrEmptyCart
	}

	me, err := co.API.Me(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("loading owned courses: %w", err)
	}
	owned := make(map[string]bool, len(me.Courses))
	for _, id := range me.Courses {
		owned[id] = true
	}

	var rcpt Receipt
	due := make([]local.CartItem, 0, len(items))
	for _, it := range items {
		if owned[it.ID] {
			rcpt.AlreadyOwned = append(rcpt.AlreadyOwned, it.ID)
			continue
		}
		due = append(due, it)
	}

	if len(due) == 0 {
		co.Log.Info("every course in the cart is already owned")
		return rcpt, co.Store.ClearCart(ctx, userID)
	}

	rcpt.Cents = int64(math.Round(local.Total(due) * 100))

	secret, err := co.API.StripeIntent(ctx, rcpt.Cents)
	if err != nil {
		return Receipt{}, fmt.Errorf("opening payment intent: %w", err)
	}

	info, err := co.Payment.Confirm(ctx, secret)
	if err != nil {
		return Receipt{}, fmt.Errorf("confirming payment: %w", err)
	}

	for _, it := range due {
		ord, err := co.API.CreateOrder(ctx, order.OrderNew{
			UserID:      userID,
			CourseID:    it.ID,
			PaymentInfo: info,
		})
		switch {
		case errors.Is(err, ErrAlreadyOwned):
			co.Log.WithField("course_id", it.ID).Info("course already owned")
			rcpt.AlreadyOwned = append(rcpt.AlreadyOwned, it.ID)
		case err != nil:
			return rcpt, fmt.Errorf("recording order of course[%s]: %w", it.ID, err)
		default:
			rcpt.Orders = append(rcpt.Orders, ord)
		}
	}

	if err := co.Store.ClearCart(ctx, userID); err != nil {
		return rcpt, err
	}
	return rcpt, nil
}
