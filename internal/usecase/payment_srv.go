package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/internal/data/repository"
	"kids-tutoring/internal/dto/request"
	"kids-tutoring/internal/dto/response"
	"kids-tutoring/internal/gateway"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

// FlowKind is the confirmation topology of a provider.
type FlowKind int

const (
	// FlowCheckout: hosted checkout, confirmed by re-reading it after redirect.
	FlowCheckout FlowKind = iota + 1
	// FlowTwoPhaseOrder: order created, approved out of band, then captured once.
	FlowTwoPhaseOrder
	// FlowDeferredPush: push request now, webhook callback some time later.
	FlowDeferredPush
	// FlowManual: an operator confirms directly.
	FlowManual
)

func (k FlowKind) String() string {
	switch k {
	case FlowCheckout:
		return "checkout"
	case FlowTwoPhaseOrder:
		return "two_phase_order"
	case FlowDeferredPush:
		return "deferred_push"
	case FlowManual:
		return "manual"
	}
	return "unknown"
}

// FlowOf maps a provider to its flow.
func FlowOf(p entity.Provider) FlowKind {
	switch p {
	case entity.ProviderStripe:
		return FlowCheckout
	case entity.ProviderPayPal:
		return FlowTwoPhaseOrder
	case entity.ProviderMpesa:
		return FlowDeferredPush
	case entity.ProviderManual:
		return FlowManual
	}
	return 0
}

// Confirmation is what every flow hands to the shared write path.
type Confirmation struct {
	BookingID   int64
	Provider    entity.Provider
	ProviderRef string
	Raw         any
}

// Confirmer is the single write path that turns a pending booking into a
// paid session. Calling it again for the same booking is a no-op.
type Confirmer interface {
	OnConfirmed(ctx context.Context, c Confirmation) (*entity.Session, error)
}

type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, in gateway.CheckoutInput) (*gateway.Checkout, error)
	GetCheckout(ctx context.Context, id string) (*gateway.Checkout, error)
}

type OrderGateway interface {
	CreateOrder(ctx context.Context, amount int64, bookingRef string) (*gateway.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*gateway.Capture, error)
}

type PushGateway interface {
	STKPush(ctx context.Context, in gateway.PushRequest) (*gateway.PushResponse, error)
}

// Gateways holds the configured providers. A nil field means the provider
// is unavailable.
type Gateways struct {
	Checkout CheckoutGateway
	Order    OrderGateway
	Push     PushGateway
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

const EventPaymentConfirmed = "payment.confirmed"

type PaymentService interface {
	Confirmer

	CreateCheckout(ctx context.Context, req *request.StripeCreateSessionRequest) (*response.StripeSessionResponse, error)
	VerifyCheckout(ctx context.Context, req *request.StripeVerifyRequest) (*response.StripeVerifyResponse, error)

	CreateOrder(ctx context.Context, req *request.PayPalCreateOrderRequest) (*response.PayPalOrderResponse, error)
	CaptureOrder(ctx context.Context, req *request.PayPalCaptureRequest) (*response.PayPalCaptureResponse, error)

	InitiatePush(ctx context.Context, req *request.MpesaPayRequest) (*response.MpesaPushResponse, error)
	// HandlePushCallback never needs its error surfaced to the provider;
	// it is returned for logging.
	HandlePushCallback(ctx context.Context, body []byte) error
}

type paymentService struct {
	repo        *repository.Repository
	gw          Gateways
	events      EventPublisher
	timeout     time.Duration
	strictMatch bool
	callbackURL string
	log         *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gw Gateways, events EventPublisher, config *utils.Config, log *zap.Logger) PaymentService {
	timeout := config.Booking.ProviderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &paymentService{
		repo:        repo,
		gw:          gw,
		events:      events,
		timeout:     timeout,
		strictMatch: config.Mpesa.StrictMatch,
		callbackURL: config.Mpesa.CallbackURL,
		log:         log.With(zap.String("service", "payment")),
	}
}

// ==================== SHARED WRITE PATH ====================

func (s *paymentService) OnConfirmed(ctx context.Context, c Confirmation) (*entity.Session, error) {
	if !c.Provider.Valid() {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrValidation, c.Provider)
	}

	raw, err := json.Marshal(c.Raw)
	if err != nil {
		return nil, fmt.Errorf("marshal %s confirmation: %w", c.Provider, err)
	}

	result, err := s.repo.Payment.Confirm(ctx, repository.ConfirmParams{
		PendingID:   c.BookingID,
		Provider:    c.Provider,
		ProviderRef: c.ProviderRef,
		Raw:         raw,
	})
	if errors.Is(err, repository.ErrAlreadyProcessed) {
		// lost a race with another confirmation of the same booking
		session, ferr := s.repo.Session.FindByPendingID(ctx, c.BookingID)
		if ferr != nil {
			return nil, fmt.Errorf("load confirmed session: %w", ferr)
		}
		return session, nil
	}
	if err != nil {
		s.log.Error("Failed to confirm payment",
			zap.Error(err),
			zap.Int64("booking_id", c.BookingID),
			zap.String("provider", string(c.Provider)),
		)
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("booking %d %w", c.BookingID, ErrNotFound)
	}

	if !result.Applied {
		s.log.Info("Payment already confirmed, ignoring duplicate",
			zap.Int64("booking_id", c.BookingID),
			zap.String("provider", string(c.Provider)),
			zap.String("flow", FlowOf(c.Provider).String()),
		)
		return result.Session, nil
	}

	s.log.Info("Booking paid",
		zap.Int64("booking_id", c.BookingID),
		zap.Int64("session_id", result.Session.ID),
		zap.String("provider", string(c.Provider)),
		zap.String("flow", FlowOf(c.Provider).String()),
		zap.String("provider_ref", c.ProviderRef),
	)

	s.publishConfirmed(ctx, result)

	return result.Session, nil
}

// publishConfirmed runs after commit. Broker failures are only logged.
func (s *paymentService) publishConfirmed(ctx context.Context, result *repository.ConfirmResult) {
	if s.events == nil {
		return
	}

	evt := response.PaymentConfirmedEvent{
		Event:      EventPaymentConfirmed,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	evt.Data.BookingID = result.Pending.ID
	evt.Data.SessionID = result.Session.ID
	evt.Data.PaymentID = result.Payment.ID
	evt.Data.Provider = string(result.Payment.Provider)
	if result.Payment.ProviderRef != nil {
		evt.Data.ProviderRef = *result.Payment.ProviderRef
	}
	evt.Data.Amount = result.Pending.Amount

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.events.PublishJSON(pubCtx, EventPaymentConfirmed, evt); err != nil {
		s.log.Warn("Failed to publish payment event",
			zap.Error(err),
			zap.Int64("booking_id", result.Pending.ID),
		)
	}
}

// payableBooking loads a booking that can still be paid for.
func (s *paymentService) payableBooking(ctx context.Context, id int64) (*entity.PendingSession, error) {
	pending, err := s.repo.PendingSession.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if pending == nil {
		return nil, fmt.Errorf("booking %d %w", id, ErrNotFound)
	}
	if pending.Processed {
		return nil, fmt.Errorf("%w: booking %d is already paid", ErrConflict, id)
	}
	return pending, nil
}

// checkAmount refuses a payment for anything other than the booked price.
func checkAmount(pending *entity.PendingSession, amount int64) error {
	if amount != pending.Amount {
		return fmt.Errorf("%w: amount %d does not match booking %d price %d",
			ErrValidation, amount, pending.ID, pending.Amount)
	}
	return nil
}

func bookingRef(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}
	return nil
}

// ==================== CHECKOUT ====================

func (s *paymentService) CreateCheckout(ctx context.Context, req *request.StripeCreateSessionRequest) (*response.StripeSessionResponse, error) {
	if s.gw.Checkout == nil {
		return nil, fmt.Errorf("stripe: %w", ErrProviderUnavailable)
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.BookingID != nil {
		pending, err := s.payableBooking(ctx, *req.BookingID)
		if err != nil {
			return nil, err
		}
		if err := checkAmount(pending, req.Amount); err != nil {
			return nil, err
		}
	}

	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = req.SuccessURL
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checkout, err := s.gw.Checkout.CreateCheckout(callCtx, gateway.CheckoutInput{
		Amount:     req.Amount,
		SuccessURL: req.SuccessURL,
		CancelURL:  cancelURL,
		BookingRef: bookingRef(req.BookingID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	s.log.Info("Checkout created",
		zap.String("checkout_id", checkout.ID),
		zap.String("booking_ref", bookingRef(req.BookingID)),
	)

	return &response.StripeSessionResponse{URL: checkout.URL, ID: checkout.ID}, nil
}

func (s *paymentService) VerifyCheckout(ctx context.Context, req *request.StripeVerifyRequest) (*response.StripeVerifyResponse, error) {
	if s.gw.Checkout == nil {
		return nil, fmt.Errorf("stripe: %w", ErrProviderUnavailable)
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	checkout, err := s.gw.Checkout.GetCheckout(callCtx, req.SessionID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	resp := &response.StripeVerifyResponse{Paid: checkout.Paid, Checkout: checkout.Raw}
	if !checkout.Paid || checkout.BookingRef == "" {
		return resp, nil
	}

	id, err := strconv.ParseInt(checkout.BookingRef, 10, 64)
	if err != nil || id < 1 {
		s.log.Warn("Checkout carries an unusable booking reference",
			zap.String("checkout_id", checkout.ID),
			zap.String("booking_ref", checkout.BookingRef),
		)
		return resp, nil
	}
	resp.BookingID = &id

	session, err := s.OnConfirmed(ctx, Confirmation{
		BookingID:   id,
		Provider:    entity.ProviderStripe,
		ProviderRef: checkout.ID,
		Raw:         checkout.Raw,
	})
	if errors.Is(err, ErrNotFound) {
		s.log.Warn("Paid checkout references a missing booking",
			zap.String("checkout_id", checkout.ID),
			zap.Int64("booking_id", id),
		)
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	resp.Booking = response.SessionToResponse(session)

	return resp, nil
}

// ==================== TWO-PHASE ORDER ====================

func (s *paymentService) CreateOrder(ctx context.Context, req *request.PayPalCreateOrderRequest) (*response.PayPalOrderResponse, error) {
	if s.gw.Order == nil {
		return nil, fmt.Errorf("paypal: %w", ErrProviderUnavailable)
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.BookingID != nil {
		pending, err := s.payableBooking(ctx, *req.BookingID)
		if err != nil {
			return nil, err
		}
		if err := checkAmount(pending, req.Amount); err != nil {
			return nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.gw.Order.CreateOrder(callCtx, req.Amount, bookingRef(req.BookingID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	s.log.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("booking_ref", bookingRef(req.BookingID)),
	)

	return &response.PayPalOrderResponse{ApprovalURL: order.ApprovalURL, OrderID: order.ID}, nil
}

// CaptureOrder is attempted once. Anything but COMPLETED is a failure and is
// not retried.
func (s *paymentService) CaptureOrder(ctx context.Context, req *request.PayPalCaptureRequest) (*response.PayPalCaptureResponse, error) {
	if s.gw.Order == nil {
		return nil, fmt.Errorf("paypal: %w", ErrProviderUnavailable)
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	capture, err := s.gw.Order.CaptureOrder(callCtx, req.OrderID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if capture.Status != gateway.StatusCompleted {
		s.log.Warn("Order capture not completed",
			zap.String("order_id", req.OrderID),
			zap.String("status", capture.Status),
		)
		return nil, fmt.Errorf("%w: capture status %s", ErrProviderRejected, capture.Status)
	}

	resp := &response.PayPalCaptureResponse{Status: capture.Status, Result: capture.Raw}
	if req.BookingID == nil {
		return resp, nil
	}

	ref := capture.OrderID
	if ref == "" {
		ref = req.OrderID
	}
	session, err := s.OnConfirmed(ctx, Confirmation{
		BookingID:   *req.BookingID,
		Provider:    entity.ProviderPayPal,
		ProviderRef: ref,
		Raw:         capture.Raw,
	})
	if err != nil {
		return nil, err
	}
	resp.Booking = response.SessionToResponse(session)

	return resp, nil
}

// ==================== DEFERRED PUSH ====================

func (s *paymentService) InitiatePush(ctx context.Context, req *request.MpesaPayRequest) (*response.MpesaPushResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if s.gw.Push == nil {
		return nil, fmt.Errorf("mpesa: %w", ErrProviderUnavailable)
	}
	if req.Amount%100 != 0 {
		return nil, fmt.Errorf("%w: amount must be a whole number of shillings", ErrValidation)
	}

	pending, err := s.payableBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(pending, req.Amount); err != nil {
		return nil, err
	}

	phone := gateway.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone: This field is required", ErrValidation)
	}

	// the phone must be on the record before the handset can answer
	if err := s.repo.PendingSession.SetPushDetails(ctx, pending.ID, phone, ""); err != nil {
		return nil, fmt.Errorf("record push details: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	push, err := s.gw.Push.STKPush(callCtx, gateway.PushRequest{
		Phone:       phone,
		Amount:      pending.Amount,
		BookingRef:  strconv.FormatInt(pending.ID, 10),
		CallbackURL: s.callbackURL,
	})
	cancel()
	if errors.Is(err, gateway.ErrRejected) {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if push.CheckoutRequestID != "" {
		if err := s.repo.PendingSession.SetPushDetails(ctx, pending.ID, phone, push.CheckoutRequestID); err != nil {
			// the phone+amount fallback still works without the ref
			s.log.Warn("Failed to record checkout request id",
				zap.Error(err),
				zap.Int64("booking_id", pending.ID),
			)
		}
	}

	return &response.MpesaPushResponse{Success: true, Data: push}, nil
}

func (s *paymentService) HandlePushCallback(ctx context.Context, body []byte) error {
	cb, ok, err := gateway.ParseCallback(body)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("Ignoring non-STK callback")
		return nil
	}

	if cb.ResultCode != 0 {
		s.log.Info("STK push failed or cancelled",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.Int("result_code", cb.ResultCode),
			zap.String("result_desc", cb.ResultDesc),
		)
		return nil
	}

	pending, err := s.matchCallback(ctx, cb)
	if err != nil {
		return err
	}

	ref := cb.Receipt
	if ref == "" {
		ref = cb.CheckoutRequestID
	}

	_, err = s.OnConfirmed(ctx, Confirmation{
		BookingID:   pending.ID,
		Provider:    entity.ProviderMpesa,
		ProviderRef: ref,
		Raw:         json.RawMessage(body),
	})
	return err
}

// matchCallback correlates a callback to an unprocessed booking: first by
// the echoed checkout request id, then by phone and amount, newest first.
// Processed bookings never match, which makes replays a no-op.
func (s *paymentService) matchCallback(ctx context.Context, cb *gateway.CallbackResult) (*entity.PendingSession, error) {
	if cb.CheckoutRequestID != "" {
		pending, err := s.repo.PendingSession.FindUnprocessedByCheckoutRef(ctx, cb.CheckoutRequestID)
		if err != nil {
			return nil, fmt.Errorf("match by checkout ref: %w", err)
		}
		if pending != nil {
			if pending.Amount != cb.Amount {
				s.log.Warn("Callback amount differs from booked price",
					zap.String("checkout_request_id", cb.CheckoutRequestID),
					zap.Int64("booking_id", pending.ID),
					zap.Int64("amount", cb.Amount),
					zap.Int64("price", pending.Amount),
				)
				return nil, fmt.Errorf("%w: mpesa callback amount %d, booking %d price %d",
					ErrValidation, cb.Amount, pending.ID, pending.Amount)
			}
			return pending, nil
		}
	}

	candidates, err := s.repo.PendingSession.FindUnprocessedByPhoneAmount(ctx, cb.Phone, cb.Amount, 2)
	if err != nil {
		return nil, fmt.Errorf("match by phone and amount: %w", err)
	}

	switch {
	case len(candidates) == 0:
		s.log.Warn("No pending booking matches callback",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.String("phone", cb.Phone),
			zap.Int64("amount", cb.Amount),
		)
		return nil, fmt.Errorf("mpesa callback: unprocessed booking %w", ErrNotFound)
	case len(candidates) > 1 && s.strictMatch:
		s.log.Warn("Callback matches several pending bookings, refusing to pick",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.String("phone", cb.Phone),
			zap.Int64("amount", cb.Amount),
		)
		return nil, fmt.Errorf("mpesa callback: %w", ErrAmbiguousMatch)
	}

	return candidates[0], nil
}
