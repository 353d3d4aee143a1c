package entity

import (
	"time"
)

// BaseSimple is embedded by append-only rows keyed by a serial id.
type BaseSimple struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

// Base adds updated_at for rows that get changed in place.
type Base struct {
	BaseSimple
	UpdatedAt time.Time `db:"updated_at"`
}

// Booking holds the booking form fields copied from a pending session into
// its confirmed session.
type Booking struct {
	ParentName  string `db:"parent_name"`
	ChildName   string `db:"child_name"`
	Email       string `db:"email"`
	SessionType string `db:"session_type"`
	Date        string `db:"date"`
	Time        string `db:"time"`
}
