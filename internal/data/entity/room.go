package entity

import (
	"time"
)

type RoomStatus string

const (
	RoomStatusPending RoomStatus = "pending"
	RoomStatusActive  RoomStatus = "active"
	RoomStatusClosed  RoomStatus = "closed"
)

type Room struct {
	ID          string     `db:"id"`
	BookingID   *int64     `db:"booking_id"`
	TutorID     *int64     `db:"tutor_id"`
	Status      RoomStatus `db:"status"`
	SecretToken *string    `db:"secret_token"` // bcrypt hash
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
}

// Expired reports whether the room had an expiry and it has passed at now.
func (r *Room) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
