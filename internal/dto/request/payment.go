package request

// Amounts are integer minor currency units.

type StripeCreateSessionRequest struct {
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url,omitempty" validate:"omitempty,url"`
	BookingID  *int64 `json:"bookingId,omitempty" validate:"omitempty,gt=0"`
}

type StripeVerifyRequest struct {
	SessionID string `json:"sessionId" validate:"notblank"`
}

type PayPalCreateOrderRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	BookingID *int64 `json:"bookingId,omitempty" validate:"omitempty,gt=0"`
}

type PayPalCaptureRequest struct {
	OrderID   string `json:"orderId" validate:"notblank"`
	BookingID *int64 `json:"bookingId,omitempty" validate:"omitempty,gt=0"`
}

type MpesaPayRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Phone     string `json:"phone" validate:"notblank,max=20"`
	BookingID int64  `json:"bookingId" validate:"required,gt=0"`
}
