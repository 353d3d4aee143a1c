package entity

import "encoding/json"

type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPayPal Provider = "paypal"
	ProviderMpesa  Provider = "mpesa"
	ProviderManual Provider = "manual"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderStripe, ProviderPayPal, ProviderMpesa, ProviderManual:
		return true
	}
	return false
}

const PaymentStatusSuccess = "success"

// Payment is one audit row per provider confirmation. Never updated.
type Payment struct {
	BaseSimple
	PendingSessionID *int64          `db:"pending_session_id"`
	Provider         Provider        `db:"provider"`
	ProviderRef      *string         `db:"provider_ref"`
	Status           string          `db:"status"`
	RawResponse      json.RawMessage `db:"raw_response"`
}
