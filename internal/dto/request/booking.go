package request

type CreateBookingRequest struct {
	ParentName  string  `json:"parentName" validate:"notblank,max=255"`
	ChildName   string  `json:"childName" validate:"notblank,max=255"`
	Email       string  `json:"email" validate:"notblank,email"`
	SessionType string  `json:"sessionType" validate:"notblank,max=100"`
	Date        string  `json:"date" validate:"notblank,booking_date"`
	Time        string  `json:"time" validate:"notblank,booking_time"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Amount      *int64  `json:"amount,omitempty" validate:"omitempty,gt=0"` // minor units
}

// ConfirmPaymentRequest is the manual confirmation body.
type ConfirmPaymentRequest struct {
	Provider      string `json:"provider" validate:"required,oneof=stripe paypal mpesa manual"`
	TransactionID string `json:"transactionId,omitempty" validate:"max=255"`
}
