package gateway

import (
	"context"
	"fmt"

	"kids-tutoring/pkg/utils"

	"github.com/plutov/paypal/v4"
	"go.uber.org/zap"
)

// PayPal drives the create-order / capture protocol.
type PayPal struct {
	client   *paypal.Client
	currency string
	log      *zap.Logger
}

func NewPayPal(cfg utils.PayPalConfig, log *zap.Logger) (*PayPal, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("paypal: %w", ErrNotConfigured)
	}

	base := paypal.APIBaseSandBox
	if cfg.Env == "live" {
		base = paypal.APIBaseLive
	}

	return newPayPal(cfg, base, log)
}

func newPayPal(cfg utils.PayPalConfig, base string, log *zap.Logger) (*PayPal, error) {
	c, err := paypal.NewClient(cfg.ClientID, cfg.ClientSecret, base)
	if err != nil {
		return nil, fmt.Errorf("paypal client: %w", err)
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}

	return &PayPal{
		client:   c,
		currency: currency,
		log:      log.With(zap.String("gateway", "paypal")),
	}, nil
}

// CreateOrder opens a CAPTURE-intent order and returns its approval link.
// amount is in minor units.
func (p *PayPal) CreateOrder(ctx context.Context, amount int64, bookingRef string) (*Order, error) {
	if _, err := p.client.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("paypal access token: %w", err)
	}

	units := []paypal.PurchaseUnitRequest{
		{
			ReferenceID: bookingRef,
			CustomID:    bookingRef,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: p.currency,
				Value:    formatMinor(amount),
			},
		},
	}

	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		p.log.Error("Failed to create order", zap.Error(err), zap.String("booking_ref", bookingRef))
		return nil, fmt.Errorf("paypal create order: %w", err)
	}

	var approval string
	for _, link := range order.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			approval = link.Href
			break
		}
	}

	return &Order{ID: order.ID, Status: order.Status, ApprovalURL: approval}, nil
}

// CaptureOrder is attempted once per call; callers must not retry on a
// non-completed status.
func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	if _, err := p.client.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("paypal access token: %w", err)
	}

	res, err := p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		p.log.Error("Failed to capture order", zap.Error(err), zap.String("order_id", orderID))
		return nil, fmt.Errorf("paypal capture order %s: %w", orderID, err)
	}

	return &Capture{OrderID: res.ID, Status: res.Status, Raw: res}, nil
}
