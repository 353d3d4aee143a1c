package usecase

import (
	"context"
	"fmt"
	"strings"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/internal/data/repository"
	"kids-tutoring/internal/dto/request"
	"kids-tutoring/internal/dto/response"
	"kids-tutoring/internal/gateway"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingCreatedResponse, error)
	GetBooking(ctx context.Context, id int64) (*response.BookingResponse, error)

	// ConfirmManually marks a booking paid without a provider round trip.
	ConfirmManually(ctx context.Context, id int64, req *request.ConfirmPaymentRequest) (*response.SessionResponse, error)
}

type bookingService struct {
	repo         *repository.Repository
	confirmer    Confirmer
	sessionPrice int64
	log          *zap.Logger
}

func NewBookingService(repo *repository.Repository, confirmer Confirmer, config *utils.Config, log *zap.Logger) BookingService {
	return &bookingService{
		repo:         repo,
		confirmer:    confirmer,
		sessionPrice: config.Booking.SessionPrice,
		log:          log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingCreatedResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	amount := s.sessionPrice
	if req.Amount != nil {
		amount = *req.Amount
	}

	pending := &entity.PendingSession{
		Booking: entity.Booking{
			ParentName:  strings.TrimSpace(req.ParentName),
			ChildName:   strings.TrimSpace(req.ChildName),
			Email:       strings.TrimSpace(req.Email),
			SessionType: strings.TrimSpace(req.SessionType),
			Date:        req.Date,
			Time:        req.Time,
		},
		Amount: amount,
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		phone := gateway.NormalizePhone(*req.Phone)
		pending.Phone = &phone
	}

	if err := s.repo.PendingSession.Create(ctx, pending); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.Int64("booking_id", pending.ID),
		zap.String("session_type", pending.SessionType),
		zap.Int64("amount", pending.Amount),
	)

	return &response.BookingCreatedResponse{ID: pending.ID}, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id int64) (*response.BookingResponse, error) {
	pending, err := s.repo.PendingSession.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if pending == nil {
		return nil, fmt.Errorf("booking %d %w", id, ErrNotFound)
	}

	resp := response.BookingToResponse(pending)

	session, err := s.repo.Session.FindByPendingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking session: %w", err)
	}
	resp.Session = response.SessionToResponse(session)

	payments, err := s.repo.Payment.ListByPendingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking payments: %w", err)
	}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, response.PaymentToResponse(p))
	}

	return resp, nil
}

func (s *bookingService) ConfirmManually(ctx context.Context, id int64, req *request.ConfirmPaymentRequest) (*response.SessionResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	session, err := s.confirmer.OnConfirmed(ctx, Confirmation{
		BookingID:   id,
		Provider:    entity.Provider(req.Provider),
		ProviderRef: req.TransactionID,
		Raw:         map[string]string{"source": "manual", "transactionId": req.TransactionID},
	})
	if err != nil {
		return nil, err
	}

	return response.SessionToResponse(session), nil
}
