package repository

import (
	"kids-tutoring/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	PendingSession PendingSessionRepository
	Session        SessionRepository
	Payment        PaymentRepository
	Room           RoomRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		PendingSession: NewPendingSessionRepository(db, log),
		Session:        NewSessionRepository(db, log),
		Payment:        NewPaymentRepository(db, log),
		Room:           NewRoomRepository(db, log),
	}
}
