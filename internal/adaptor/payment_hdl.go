package adaptor

import (
	"encoding/json"
	"io"
	"net/http"

	"kids-tutoring/internal/dto/request"
	"kids-tutoring/internal/dto/response"
	"kids-tutoring/internal/usecase"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

const maxCallbackBody = 1 << 20

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// decode reads a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// ==================== STRIPE ====================

// CreateStripeSession handles POST /api/pay/stripe/create-session
func (h *PaymentHandler) CreateStripeSession(w http.ResponseWriter, r *http.Request) {
	var req request.StripeCreateSessionRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.service.CreateCheckout(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create stripe session")
		return
	}

	utils.ResponseSuccess(w, "success", session)
}

// VerifyStripeSession handles POST /api/pay/stripe/verify
func (h *PaymentHandler) VerifyStripeSession(w http.ResponseWriter, r *http.Request) {
	var req request.StripeVerifyRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.VerifyCheckout(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "verify stripe session")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// ==================== PAYPAL ====================

// CreatePayPalOrder handles POST /api/pay/paypal/create-order
func (h *PaymentHandler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req request.PayPalCreateOrderRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create paypal order")
		return
	}

	utils.ResponseSuccess(w, "success", order)
}

// CapturePayPalOrder handles POST /api/pay/paypal/capture
func (h *PaymentHandler) CapturePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req request.PayPalCaptureRequest
	if !decode(w, r, &req) {
		return
	}

	capture, err := h.service.CaptureOrder(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "capture paypal order")
		return
	}

	utils.ResponseSuccess(w, "success", capture)
}

// ==================== M-PESA ====================

// PayMpesa handles POST /api/pay/mpesa
func (h *PaymentHandler) PayMpesa(w http.ResponseWriter, r *http.Request) {
	var req request.MpesaPayRequest
	if !decode(w, r, &req) {
		return
	}

	push, err := h.service.InitiatePush(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "mpesa push")
		return
	}

	utils.ResponseSuccess(w, "STK push sent", push)
}

// MpesaCallback handles POST /api/mpesa/callback. Daraja retries anything
// but a 200, so the callback is always acknowledged and problems are logged.
func (h *PaymentHandler) MpesaCallback(w http.ResponseWriter, r *http.Request) {
	ack := response.MpesaCallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		h.log.Warn("Failed to read mpesa callback", zap.Error(err))
		utils.WriteJSON(w, http.StatusOK, ack)
		return
	}

	if err := h.service.HandlePushCallback(r.Context(), body); err != nil {
		h.log.Warn("Mpesa callback not applied", zap.Error(err))
	}

	utils.WriteJSON(w, http.StatusOK, ack)
}
