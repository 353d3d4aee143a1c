package response

import (
	"time"

	"kids-tutoring/internal/data/entity"
)

type RoomCreatedResponse struct {
	RoomID    string     `json:"roomId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// RoomResponse never carries the secret hash, only whether one is set.
type RoomResponse struct {
	ID        string            `json:"id"`
	BookingID *int64            `json:"bookingId,omitempty"`
	TutorID   *int64            `json:"tutorId,omitempty"`
	Status    entity.RoomStatus `json:"status"`
	HasSecret bool              `json:"hasSecret"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt *time.Time        `json:"expiresAt"`
}

func RoomToResponse(r *entity.Room) RoomResponse {
	return RoomResponse{
		ID:        r.ID,
		BookingID: r.BookingID,
		TutorID:   r.TutorID,
		Status:    r.Status,
		HasSecret: r.SecretToken != nil,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}
