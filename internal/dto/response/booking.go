package response

import (
	"time"

	"kids-tutoring/internal/data/entity"
)

type BookingCreatedResponse struct {
	ID int64 `json:"id"`
}

type BookingResponse struct {
	ID          int64             `json:"id"`
	ParentName  string            `json:"parentName"`
	ChildName   string            `json:"childName"`
	Email       string            `json:"email"`
	SessionType string            `json:"sessionType"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Phone       *string           `json:"phone,omitempty"`
	Amount      int64             `json:"amount"`
	Processed   bool              `json:"processed"`
	CreatedAt   time.Time         `json:"createdAt"`
	Session     *SessionResponse  `json:"session,omitempty"`
	Payments    []PaymentResponse `json:"payments,omitempty"`
}

type SessionResponse struct {
	ID               int64                `json:"id"`
	PendingSessionID *int64               `json:"pendingSessionId,omitempty"`
	ParentName       string               `json:"parentName"`
	ChildName        string               `json:"childName"`
	Email            string               `json:"email"`
	SessionType      string               `json:"sessionType"`
	Date             string               `json:"date"`
	Time             string               `json:"time"`
	PaymentStatus    entity.PaymentStatus `json:"paymentStatus"`
	PaymentProvider  *string              `json:"paymentProvider,omitempty"`
	PaymentRef       *string              `json:"paymentRef,omitempty"`
}

type PaymentResponse struct {
	ID          int64           `json:"id"`
	Provider    entity.Provider `json:"provider"`
	ProviderRef *string         `json:"providerRef,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Helper converters
func BookingToResponse(p *entity.PendingSession) *BookingResponse {
	return &BookingResponse{
		ID:          p.ID,
		ParentName:  p.ParentName,
		ChildName:   p.ChildName,
		Email:       p.Email,
		SessionType: p.SessionType,
		Date:        p.Date,
		Time:        p.Time,
		Phone:       p.Phone,
		Amount:      p.Amount,
		Processed:   p.Processed,
		CreatedAt:   p.CreatedAt,
	}
}

func SessionToResponse(s *entity.Session) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:               s.ID,
		PendingSessionID: s.PendingSessionID,
		ParentName:       s.ParentName,
		ChildName:        s.ChildName,
		Email:            s.Email,
		SessionType:      s.SessionType,
		Date:             s.Date,
		Time:             s.Time,
		PaymentStatus:    s.PaymentStatus,
		PaymentProvider:  s.PaymentProvider,
		PaymentRef:       s.PaymentRef,
	}
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		Provider:    p.Provider,
		ProviderRef: p.ProviderRef,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
}
