package adaptor

import (
	"errors"
	"net/http"

	"kids-tutoring/internal/signaling"
	"kids-tutoring/internal/usecase"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking   *BookingHandler
	Room      *RoomHandler
	Payment   *PaymentHandler
	Signaling *SignalingHandler
}

func NewHandler(service *usecase.Service, relay *signaling.Relay, ws http.Handler, log *zap.Logger) *Handler {
	return &Handler{
		Booking:   NewBookingHandler(service.Booking, log),
		Room:      NewRoomHandler(service.Room, log),
		Payment:   NewPaymentHandler(service.Payment, log),
		Signaling: NewSignalingHandler(relay, ws, log),
	}
}

// handleServiceError maps usecase errors onto the response envelope.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	errMsg := err.Error()

	switch {
	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, errMsg, nil)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, errMsg)

	case errors.Is(err, usecase.ErrConflict):
		log.Warn(operation+" failed - invalid state",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, errMsg)

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseForbidden(w, errMsg)

	case errors.Is(err, usecase.ErrProviderUnavailable):
		log.Warn(operation+" failed - provider not configured",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseUnavailable(w, errMsg)

	case errors.Is(err, usecase.ErrProviderRejected):
		log.Warn(operation+" failed - rejected by provider",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponsePaymentFailed(w, errMsg, nil)

	case errors.Is(err, usecase.ErrProviderFailed):
		log.Error(operation+" failed - provider error",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadGateway(w, "payment provider request failed")

	default:
		log.Error(operation+" failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
