package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kids-tutoring/pkg/utils"

	"go.uber.org/zap/zaptest"
)

func newTestPayPal(t *testing.T, captureStatus string, gotOrder *map[string]any) *PayPal {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"A21","token_type":"Bearer","expires_in":32400}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if gotOrder != nil {
			json.NewDecoder(r.Body).Decode(gotOrder)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"O-1","status":"CREATED","links":[
			{"href":"https://api.sandbox.paypal.com/v2/checkout/orders/O-1","rel":"self","method":"GET"},
			{"href":"https://www.sandbox.paypal.com/checkoutnow?token=O-1","rel":"approve","method":"GET"}
		]}`))
	})
	mux.HandleFunc("/v2/checkout/orders/O-1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"O-1","status":"` + captureStatus + `"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := newPayPal(utils.PayPalConfig{ClientID: "id", ClientSecret: "secret"}, srv.URL, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newPayPal: %v", err)
	}
	return p
}

func TestPayPalCreateOrder(t *testing.T) {
	var body map[string]any
	p := newTestPayPal(t, "COMPLETED", &body)

	order, err := p.CreateOrder(context.Background(), 1999, "9")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "O-1" {
		t.Errorf("ID = %q, want O-1", order.ID)
	}
	if order.ApprovalURL != "https://www.sandbox.paypal.com/checkoutnow?token=O-1" {
		t.Errorf("ApprovalURL = %q", order.ApprovalURL)
	}

	units, _ := body["purchase_units"].([]any)
	if len(units) != 1 {
		t.Fatalf("purchase_units = %v", body["purchase_units"])
	}
	amount, _ := units[0].(map[string]any)["amount"].(map[string]any)
	if amount["value"] != "19.99" || amount["currency_code"] != "USD" {
		t.Errorf("amount = %v, want 19.99 USD", amount)
	}
	if body["intent"] != "CAPTURE" {
		t.Errorf("intent = %v, want CAPTURE", body["intent"])
	}
}

func TestPayPalCaptureOrder(t *testing.T) {
	for _, status := range []string{"COMPLETED", "PAYER_ACTION_REQUIRED"} {
		t.Run(status, func(t *testing.T) {
			p := newTestPayPal(t, status, nil)

			capture, err := p.CaptureOrder(context.Background(), "O-1")
			if err != nil {
				t.Fatalf("CaptureOrder: %v", err)
			}
			if capture.Status != status || capture.OrderID != "O-1" {
				t.Errorf("capture = %+v", capture)
			}
		})
	}
}
