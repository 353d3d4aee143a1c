package entity

// PendingSession is an unpaid booking request. Processed flips once, when a
// payment for it is confirmed. Rows are never deleted.
type PendingSession struct {
	BaseSimple
	Booking
	Phone     *string `db:"phone"`
	Amount    int64   `db:"amount"` // minor units
	Processed bool    `db:"processed"`

	// CheckoutRef is the push request id returned by the deferred provider
	CheckoutRef *string `db:"checkout_ref"`
}
