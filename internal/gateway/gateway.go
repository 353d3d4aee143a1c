// Package gateway talks to the external payment providers. Each adapter
// converts the minor-unit amounts used at the HTTP boundary into whatever the
// provider expects and returns plain values the usecase layer can store.
package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the provider credentials are missing.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrRejected means the provider answered but declined the request.
	ErrRejected = errors.New("provider rejected request")
)

// Checkout is a hosted card checkout session.
type Checkout struct {
	ID            string
	URL           string
	PaymentStatus string
	Paid          bool
	BookingRef    string
	Raw           any
}

// CheckoutInput describes a checkout to create. Amount is in minor units.
type CheckoutInput struct {
	Amount     int64
	SuccessURL string
	CancelURL  string
	BookingRef string
}

// Order is a two-phase order waiting for buyer approval.
type Order struct {
	ID          string
	Status      string
	ApprovalURL string
}

// Capture is the outcome of capturing an approved order.
type Capture struct {
	OrderID string
	Status  string
	Raw     any
}

// StatusCompleted is the only capture status that counts as paid.
const StatusCompleted = "COMPLETED"

// formatMinor renders minor units as a two-decimal major-unit string.
func formatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
