package response

type StripeSessionResponse struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

type StripeVerifyResponse struct {
	Paid      bool             `json:"paid"`
	BookingID *int64           `json:"bookingId,omitempty"`
	Checkout  any              `json:"session"`
	Booking   *SessionResponse `json:"booking,omitempty"`
}

type PayPalOrderResponse struct {
	ApprovalURL string `json:"approvalUrl"`
	OrderID     string `json:"orderId"`
}

type PayPalCaptureResponse struct {
	Status  string           `json:"status"`
	Result  any              `json:"result"`
	Booking *SessionResponse `json:"booking,omitempty"`
}

type MpesaPushResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// MpesaCallbackAck is the body Daraja expects back from the callback URL.
type MpesaCallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// PaymentConfirmedEvent is published after a confirmation commits.
type PaymentConfirmedEvent struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		BookingID   int64  `json:"booking_id"`
		SessionID   int64  `json:"session_id"`
		PaymentID   int64  `json:"payment_id"`
		Provider    string `json:"provider"`
		ProviderRef string `json:"provider_ref,omitempty"`
		Amount      int64  `json:"amount"`
	} `json:"data"`
}
