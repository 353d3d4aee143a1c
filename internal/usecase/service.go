package usecase

import (
	"kids-tutoring/internal/data/repository"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking BookingService
	Room    RoomService
	Payment PaymentService
}

func NewService(repo *repository.Repository, gw Gateways, events EventPublisher, config *utils.Config, log *zap.Logger) *Service {
	payment := NewPaymentService(repo, gw, events, config, log)

	return &Service{
		Booking: NewBookingService(repo, payment, config, log),
		Room:    NewRoomService(repo, log),
		Payment: payment,
	}
}
