package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"kids-tutoring/pkg/utils"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap/zaptest"
)

func newTestStripe(t *testing.T, h http.Handler) *Stripe {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	backends := &stripe.Backends{API: backend, Connect: backend, Uploads: backend}

	return newStripe(utils.StripeConfig{
		SecretKey:   "sk_test_123",
		Currency:    "usd",
		ProductName: "Tutoring Session",
	}, backends, zaptest.NewLogger(t))
}

func TestStripeCreateCheckout(t *testing.T) {
	var form map[string][]string
	s := newTestStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","payment_status":"unpaid"}`))
	}))

	checkout, err := s.CreateCheckout(context.Background(), CheckoutInput{
		Amount:     2500,
		SuccessURL: "https://example.com/ok",
		CancelURL:  "https://example.com/cancel",
		BookingRef: "7",
	})
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	if checkout.ID != "cs_test_1" || checkout.URL == "" {
		t.Errorf("unexpected checkout: %+v", checkout)
	}
	if checkout.Paid {
		t.Error("a fresh checkout must not be paid")
	}

	checks := map[string]string{
		"metadata[bookingId]":                    "7",
		"client_reference_id":                    "7",
		"line_items[0][price_data][unit_amount]": "2500",
		"line_items[0][price_data][currency]":    "usd",
		"mode":                                   "payment",
		"success_url":                            "https://example.com/ok",
	}
	for key, want := range checks {
		if got := first(form[key]); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestStripeGetCheckout(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantPaid bool
		wantRef  string
	}{
		{
			name:     "paid with metadata",
			body:     `{"id":"cs_1","object":"checkout.session","payment_status":"paid","metadata":{"bookingId":"12"}}`,
			wantPaid: true,
			wantRef:  "12",
		},
		{
			name:     "paid with client reference only",
			body:     `{"id":"cs_1","object":"checkout.session","payment_status":"paid","client_reference_id":"13"}`,
			wantPaid: true,
			wantRef:  "13",
		},
		{
			name:     "unpaid",
			body:     `{"id":"cs_1","object":"checkout.session","payment_status":"unpaid","metadata":{"bookingId":"12"}}`,
			wantPaid: false,
			wantRef:  "12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/v1/checkout/sessions/cs_1" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))

			checkout, err := s.GetCheckout(context.Background(), "cs_1")
			if err != nil {
				t.Fatalf("GetCheckout: %v", err)
			}
			if checkout.Paid != tt.wantPaid {
				t.Errorf("Paid = %v, want %v", checkout.Paid, tt.wantPaid)
			}
			if checkout.BookingRef != tt.wantRef {
				t.Errorf("BookingRef = %q, want %q", checkout.BookingRef, tt.wantRef)
			}
		})
	}
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
