package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"kids-tutoring/pkg/utils"

	"go.uber.org/zap/zaptest"
)

func newTestMpesa(t *testing.T, srv *httptest.Server) *Mpesa {
	t.Helper()

	m, err := NewMpesa(utils.MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/api/mpesa/callback",
	}, 5*time.Second, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewMpesa: %v", err)
	}
	m.baseURL = srv.URL
	m.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return m
}

type darajaStub struct {
	tokens   atomic.Int32
	lastPush stkPushBody
	lastAuth string
	code     string
}

func (d *darajaStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		n := d.tokens.Add(1)
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok-" + string(rune('0'+n)),
			"expires_in":   "3599",
		})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		d.lastAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&d.lastPush); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		json.NewEncoder(w).Encode(PushResponse{
			MerchantRequestID: "m-1",
			CheckoutRequestID: "ws_CO_1",
			ResponseCode:      d.code,
		})
	})
	return mux
}

func TestMpesaSTKPush(t *testing.T) {
	stub := &darajaStub{code: "0"}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	m := newTestMpesa(t, srv)

	resp, err := m.STKPush(context.Background(), PushRequest{
		Phone:      "0712345678",
		Amount:     150000,
		BookingRef: "42",
	})
	if err != nil {
		t.Fatalf("STKPush: %v", err)
	}
	if resp.CheckoutRequestID != "ws_CO_1" {
		t.Errorf("CheckoutRequestID = %q, want ws_CO_1", resp.CheckoutRequestID)
	}

	body := stub.lastPush
	if body.Amount != 1500 {
		t.Errorf("Amount = %d, want 1500 shillings", body.Amount)
	}
	if body.PhoneNumber != "254712345678" || body.PartyA != "254712345678" {
		t.Errorf("phone = %q/%q, want 254712345678", body.PhoneNumber, body.PartyA)
	}
	if body.AccountReference != "BOOKING_42" {
		t.Errorf("AccountReference = %q", body.AccountReference)
	}
	// 09:30 UTC is 12:30 in Nairobi
	if body.Timestamp != "20240301123000" {
		t.Errorf("Timestamp = %q, want 20240301123000", body.Timestamp)
	}
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + "20240301123000"))
	if body.Password != wantPassword {
		t.Errorf("Password = %q, want %q", body.Password, wantPassword)
	}
	if body.CallBackURL != "https://example.com/api/mpesa/callback" {
		t.Errorf("CallBackURL = %q", body.CallBackURL)
	}
	if stub.lastAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", stub.lastAuth)
	}
}

func TestMpesaFetchesTokenPerPush(t *testing.T) {
	stub := &darajaStub{code: "0"}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	m := newTestMpesa(t, srv)
	for i := 0; i < 3; i++ {
		if _, err := m.STKPush(context.Background(), PushRequest{Phone: "254712345678", Amount: 100, BookingRef: "1"}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	if got := stub.tokens.Load(); got != 3 {
		t.Errorf("token requests = %d, want 3", got)
	}
}

func TestMpesaSTKPushRejected(t *testing.T) {
	stub := &darajaStub{code: "1"}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	m := newTestMpesa(t, srv)
	_, err := m.STKPush(context.Background(), PushRequest{Phone: "254712345678", Amount: 100, BookingRef: "1"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestMpesaSTKPushFractionalAmount(t *testing.T) {
	stub := &darajaStub{code: "0"}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	m := newTestMpesa(t, srv)
	if _, err := m.STKPush(context.Background(), PushRequest{Phone: "254712345678", Amount: 150, BookingRef: "1"}); err == nil {
		t.Fatal("expected an error for 1.50 shillings")
	}
	if stub.tokens.Load() != 0 {
		t.Error("no provider call expected for an invalid amount")
	}
}

func TestNewMpesaNotConfigured(t *testing.T) {
	_, err := NewMpesa(utils.MpesaConfig{ConsumerKey: "k"}, time.Second, zaptest.NewLogger(t))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"+254 712 345 678", "254712345678"},
		{"254712345678", "254712345678"},
		{"0112345678", "254112345678"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCallback(t *testing.T) {
	body := []byte(`{"Body":{"stkCallback":{
		"MerchantRequestID":"m-1",
		"CheckoutRequestID":"ws_CO_1",
		"ResultCode":0,
		"ResultDesc":"The service request is processed successfully.",
		"CallbackMetadata":{"Item":[
			{"Name":"Amount","Value":1500.00},
			{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
			{"Name":"TransactionDate","Value":20240301123005},
			{"Name":"PhoneNumber","Value":254712345678}
		]}}}}`)

	res, ok, err := ParseCallback(body)
	if err != nil || !ok {
		t.Fatalf("ParseCallback: ok=%v err=%v", ok, err)
	}
	if res.Amount != 150000 {
		t.Errorf("Amount = %d, want 150000 minor units", res.Amount)
	}
	if res.Receipt != "NLJ7RT61SV" {
		t.Errorf("Receipt = %q", res.Receipt)
	}
	if res.Phone != "254712345678" {
		t.Errorf("Phone = %q", res.Phone)
	}
	if res.CheckoutRequestID != "ws_CO_1" || res.ResultCode != 0 {
		t.Errorf("unexpected header fields: %+v", res)
	}
}

func TestParseCallbackFailure(t *testing.T) {
	body := []byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`)

	res, ok, err := ParseCallback(body)
	if err != nil || !ok {
		t.Fatalf("ParseCallback: ok=%v err=%v", ok, err)
	}
	if res.ResultCode != 1032 || res.Amount != 0 || res.Receipt != "" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestParseCallbackNotSTK(t *testing.T) {
	if _, ok, err := ParseCallback([]byte(`{"Body":{}}`)); ok || err != nil {
		t.Errorf("ok=%v err=%v, want ok=false err=nil", ok, err)
	}
	if _, _, err := ParseCallback([]byte(`not json`)); err == nil {
		t.Error("expected a decode error")
	}
}
