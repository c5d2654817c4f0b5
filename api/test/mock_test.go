package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
)

type mockStripe struct {
	mu      sync.Mutex
	amounts []string
}

func (m *mockStripe) handle() http.Handler {
	intent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		amount, _ := params["amount"].(string)
		m.mu.Lock()
		m.amounts = append(m.amounts, amount)
		n := len(m.amounts)
		m.mu.Unlock()

		id := fmt.Sprintf("pi_%d", n)
		pi := map[string]any{"id": id, "object": "payment_intent", "client_secret": id + "_secret"}
		web.Respond(context.Background(), w, pi, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/payment_intents", intent).Methods(http.MethodPost)
	return r
}

type mockPaypal struct {
	mu     sync.Mutex
	values []string
}

func (m *mockPaypal) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil || len(pu.Units) != 1 || pu.Units[0].Amount == nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		m.values = append(m.values, pu.Units[0].Amount.Value)
		n := len(m.values)
		m.mu.Unlock()

		web.Respond(context.Background(), w, paypal.Order{ID: fmt.Sprintf("paypal-%d", n)}, http.StatusCreated)
	})

	r := mux.NewRouter()
	r.Handle("/v2/checkout/orders", checkout).Methods(http.MethodPost)
	return r
}

func (m *mockStripe) charged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.amounts...)
}

func (m *mockPaypal) charged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.values...)
}
