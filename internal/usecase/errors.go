package usecase

import "errors"

// Handlers map these onto HTTP status codes. Wrap them with fmt.Errorf so
// the message carries the detail and errors.Is still matches.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("invalid state")
	ErrForbidden           = errors.New("forbidden")
	ErrProviderUnavailable = errors.New("payment provider not configured")
	ErrProviderRejected    = errors.New("payment rejected by provider")
	ErrProviderFailed      = errors.New("payment provider request failed")
	ErrAmbiguousMatch      = errors.New("more than one pending booking matches")
)
