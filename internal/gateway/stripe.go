package gateway

import (
	"context"
	"fmt"

	"kids-tutoring/pkg/utils"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
)

const stripeBookingKey = "bookingId"

// Stripe creates hosted checkout sessions and reads them back.
type Stripe struct {
	api         *client.API
	currency    string
	productName string
	log         *zap.Logger
}

func NewStripe(cfg utils.StripeConfig, log *zap.Logger) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe: %w", ErrNotConfigured)
	}
	return newStripe(cfg, nil, log), nil
}

// newStripe lets tests point the client at a local backend.
func newStripe(cfg utils.StripeConfig, backends *stripe.Backends, log *zap.Logger) *Stripe {
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	return &Stripe{
		api:         api,
		currency:    cfg.Currency,
		productName: cfg.ProductName,
		log:         log.With(zap.String("gateway", "stripe")),
	}
}

func (s *Stripe) CreateCheckout(ctx context.Context, in CheckoutInput) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(s.productName),
					},
					UnitAmount: stripe.Int64(in.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(stripeBookingKey, in.BookingRef)
	if in.BookingRef != "" {
		params.ClientReferenceID = stripe.String(in.BookingRef)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		s.log.Error("Failed to create checkout session", zap.Error(err), zap.String("booking_ref", in.BookingRef))
		return nil, fmt.Errorf("stripe create checkout: %w", err)
	}

	return toCheckout(sess), nil
}

// GetCheckout is read-only at the provider, so it is safe to repeat.
func (s *Stripe) GetCheckout(ctx context.Context, id string) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		s.log.Error("Failed to retrieve checkout session", zap.Error(err), zap.String("checkout_id", id))
		return nil, fmt.Errorf("stripe retrieve checkout %s: %w", id, err)
	}

	return toCheckout(sess), nil
}

func toCheckout(sess *stripe.CheckoutSession) *Checkout {
	status := string(sess.PaymentStatus)
	ref := sess.Metadata[stripeBookingKey]
	if ref == "" {
		ref = sess.ClientReferenceID
	}

	return &Checkout{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: status,
		Paid:          status == string(stripe.CheckoutSessionPaymentStatusPaid) || status == "complete",
		BookingRef:    ref,
		Raw:           sess,
	}
}
