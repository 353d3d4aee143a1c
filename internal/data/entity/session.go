package entity

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// Session is a confirmed booking. Only paid sessions reach the tutoring flow.
type Session struct {
	Base
	PendingSessionID *int64 `db:"pending_session_id"`
	Booking
	PaymentStatus   PaymentStatus `db:"payment_status"`
	PaymentProvider *string       `db:"payment_provider"`
	PaymentRef      *string       `db:"payment_ref"`
}

func (s *Session) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}
