package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

const (
	mpesaSandboxURL    = "https://sandbox.safaricom.co.ke"
	mpesaProductionURL = "https://api.safaricom.co.ke"
)

// Daraja timestamps are East Africa Time.
var eat = time.FixedZone("EAT", 3*60*60)

// Mpesa issues STK push requests against the Daraja API. The confirmation
// arrives later through the callback URL.
type Mpesa struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	client         *http.Client
	now            func() time.Time
	log            *zap.Logger
}

func NewMpesa(cfg utils.MpesaConfig, timeout time.Duration, log *zap.Logger) (*Mpesa, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.Shortcode == "" || cfg.Passkey == "" {
		return nil, fmt.Errorf("mpesa: %w", ErrNotConfigured)
	}

	base := mpesaSandboxURL
	if cfg.Env == "production" {
		base = mpesaProductionURL
	}

	return &Mpesa{
		baseURL:        base,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
		client:         &http.Client{Timeout: timeout},
		now:            time.Now,
		log:            log.With(zap.String("gateway", "mpesa")),
	}, nil
}

// PushRequest asks the customer's handset to authorise a payment.
// Amount is in minor units and must be a whole number of shillings.
type PushRequest struct {
	Phone       string
	Amount      int64
	BookingRef  string
	CallbackURL string
}

// PushResponse is Daraja's synchronous acknowledgement of a push.
type PushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// AccessToken fetches a fresh OAuth token. Tokens are never cached.
func (m *Mpesa) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(m.consumerKey + ":" + m.consumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("mpesa token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode mpesa token: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("mpesa token: empty access_token")
	}

	return out.AccessToken, nil
}

// STKPush sends the push request. A non-zero ResponseCode is reported as
// ErrRejected together with the decoded response.
func (m *Mpesa) STKPush(ctx context.Context, in PushRequest) (*PushResponse, error) {
	if in.Amount <= 0 || in.Amount%100 != 0 {
		return nil, fmt.Errorf("mpesa amount %d is not a whole number of shillings", in.Amount)
	}

	token, err := m.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	callback := in.CallbackURL
	if callback == "" {
		callback = m.callbackURL
	}

	timestamp := m.now().In(eat).Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(m.shortcode + m.passkey + timestamp))
	phone := NormalizePhone(in.Phone)

	payload, err := json.Marshal(stkPushBody{
		BusinessShortCode: m.shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            in.Amount / 100,
		PartyA:            phone,
		PartyB:            m.shortcode,
		PhoneNumber:       phone,
		CallBackURL:       callback,
		AccountReference:  "BOOKING_" + in.BookingRef,
		TransactionDesc:   "Tutoring session " + in.BookingRef,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal stk push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build stk push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mpesa stk push: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read stk push response: %w", err)
	}

	var out PushResponse
	if err := json.Unmarshal(body, &out); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode stk push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || out.ResponseCode != "0" {
		m.log.Warn("STK push rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("response_code", out.ResponseCode),
			zap.String("body", string(body)),
		)
		return &out, fmt.Errorf("stk push status %d code %q: %w", resp.StatusCode, out.ResponseCode, ErrRejected)
	}

	m.log.Info("STK push sent",
		zap.String("checkout_request_id", out.CheckoutRequestID),
		zap.String("booking_ref", in.BookingRef),
	)

	return &out, nil
}

// NormalizePhone reduces a Kenyan MSISDN to the 2547XXXXXXXX form Daraja
// uses in both requests and callbacks.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		return "254" + digits[1:]
	case len(digits) == 9 && (digits[0] == '7' || digits[0] == '1'):
		return "254" + digits
	}
	return digits
}

// ==================== CALLBACK ====================

// Callback is the Daraja STK callback envelope.
type Callback struct {
	Body struct {
		StkCallback *StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// CallbackResult is the parsed outcome of a successful or failed push.
type CallbackResult struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Receipt           string
	Phone             string
	Amount            int64 // minor units
}

// ParseCallback decodes a callback body. ok is false for payloads that are
// not STK callbacks.
func ParseCallback(body []byte) (res *CallbackResult, ok bool, err error) {
	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, false, fmt.Errorf("decode mpesa callback: %w", err)
	}
	stk := cb.Body.StkCallback
	if stk == nil {
		return nil, false, nil
	}

	res = &CallbackResult{
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
	}

	for _, item := range stk.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			var shillings float64
			if err := json.Unmarshal(item.Value, &shillings); err != nil {
				return nil, true, fmt.Errorf("decode callback amount: %w", err)
			}
			res.Amount = int64(math.Round(shillings * 100))
		case "MpesaReceiptNumber":
			res.Receipt = rawString(item.Value)
		case "PhoneNumber":
			res.Phone = NormalizePhone(rawString(item.Value))
		}
	}

	return res, true, nil
}

// rawString accepts both JSON strings and bare numbers.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
