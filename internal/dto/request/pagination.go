package request

const (
	DefaultListLimit = 500
	MaxListLimit     = 500
)

// ListRequest bounds operational list endpoints.
type ListRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1"`
}

func (l ListRequest) Bounded() int {
	if l.Limit < 1 {
		return DefaultListLimit
	}
	if l.Limit > MaxListLimit {
		return MaxListLimit
	}
	return l.Limit
}
