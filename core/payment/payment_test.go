package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
)

type mockStripe struct {
	params map[string]any
	fail   bool
}

func (m *mockStripe) handle() http.Handler {
	intent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.fail {
			body := map[string]any{"error": map[string]any{"type": "api_error", "message": "boom"}}
			web.Respond(context.Background(), w, body, http.StatusInternalServerError)
			return
		}

		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}
		m.params = params

		pi := map[string]any{
			"id":            "pi_123",
			"object":        "payment_intent",
			"client_secret": "pi_123_secret_456",
		}
		web.Respond(context.Background(), w, pi, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/payment_intents", intent).Methods(http.MethodPost)
	return r
}

func TestDollars(t *testing.T) {
	tests := map[int64]string{
		3500: "35.00",
		1999: "19.99",
		5:    "0.05",
	}
	for cents, want := range tests {
		if got := Dollars(cents); got != want {
			t.Errorf("Dollars(%d) = %s, want %s", cents, got, want)
		}
	}
}

func TestHandleStripe(t *testing.T) {
	ms := &mockStripe{}
	srv := httptest.NewServer(ms.handle())
	defer srv.Close()

	h := HandleStripe(NewStripe("sk_test_123", srv.URL))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/payment", bytes.NewBufferString(`{"amount":3500}`))
	if err := h(r.Context(), w, r); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var resp struct {
		Success      bool   `json:"success"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.ClientSecret != "pi_123_secret_456" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if ms.params["amount"] != "3500" {
		t.Errorf("expected amount 3500, got %v", ms.params["amount"])
	}
	if ms.params["currency"] != "usd" {
		t.Errorf("expected currency usd, got %v", ms.params["currency"])
	}
	meta, _ := ms.params["metadata"].(map[string]any)
	if meta["company"] != "ELearning" {
		t.Errorf("expected company metadata, got %v", ms.params["metadata"])
	}
	apm, _ := ms.params["automatic_payment_methods"].(map[string]any)
	if apm["enabled"] != "true" {
		t.Errorf("expected automatic payment methods, got %v", ms.params["automatic_payment_methods"])
	}
}

func TestHandleStripeRejectsBadAmount(t *testing.T) {
	h := HandleStripe(NewStripe("sk_test_123", "http://127.0.0.1:0"))

	for _, body := range []string{`{}`, `{"amount":0}`, `{"amount":-5}`} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/payment", bytes.NewBufferString(body))

		err := h(r.Context(), w, r)
		if _, code, ok := weberr.Response(err); !ok || code != http.StatusBadRequest {
			t.Errorf("body %s: expected a 400, got %v", body, err)
		}
	}
}

func TestHandleStripeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer((&mockStripe{fail: true}).handle())
	defer srv.Close()

	h := HandleStripe(NewStripe("sk_test_123", srv.URL))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/payment", bytes.NewBufferString(`{"amount":100}`))

	err := h(r.Context(), w, r)
	if _, code, ok := weberr.Response(err); !ok || code != http.StatusBadGateway {
		t.Fatalf("expected a 502, got %v", err)
	}
}

func TestHandlePaypal(t *testing.T) {
	var got paypal.PurchaseUnitRequest
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Intent string                       `json:"intent"`
			Units  []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Intent != "CAPTURE" || len(req.Units) != 1 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}
		got = req.Units[0]
		web.Respond(context.Background(), w, paypal.Order{ID: "PAYPAL-1"}, http.StatusCreated)
	})

	rt := mux.NewRouter()
	rt.Handle("/v2/checkout/orders", checkout).Methods(http.MethodPost)
	srv := httptest.NewServer(rt)
	defer srv.Close()

	pp, err := paypal.NewClient("client", "secret", srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	h := HandlePaypal(pp)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/payment/paypal", bytes.NewBufferString(`{"amount":3500}`))
	if err := h(r.Context(), w, r); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var resp struct {
		Success bool   `json:"success"`
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.OrderID != "PAYPAL-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got.Amount == nil || got.Amount.Value != "35.00" || got.Amount.Currency != "USD" {
		t.Fatalf("unexpected purchase unit %+v", got)
	}
}

func TestHandleStripePublishableKey(t *testing.T) {
	h := HandleStripePublishableKey("pk_test_123")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/payment/stripepublishablekey", nil)
	if err := h(r.Context(), w, r); err != nil {
		t.Fatal(err)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["publishablekey"] != "pk_test_123" {
		t.Fatalf("unexpected response %v", resp)
	}
}
