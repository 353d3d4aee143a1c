package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/internal/data/repository"
	"kids-tutoring/internal/dto/request"
	"kids-tutoring/internal/dto/response"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RoomService interface {
	CreateRoom(ctx context.Context, req *request.CreateRoomRequest) (*response.RoomCreatedResponse, error)
	GetRoom(ctx context.Context, id string) (*response.RoomResponse, error)
	ListRooms(ctx context.Context, req *request.ListRequest) (*response.ListResponse[response.RoomResponse], error)
	CloseRoom(ctx context.Context, id string) error

	// AdmitJoin decides whether a live connection may join the room.
	AdmitJoin(ctx context.Context, id, secret string) error
}

type roomService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewRoomService(repo *repository.Repository, log *zap.Logger) RoomService {
	return &roomService{
		repo: repo,
		now:  time.Now,
		log:  log.With(zap.String("service", "room")),
	}
}

const roomIDAttempts = 3

func (s *roomService) CreateRoom(ctx context.Context, req *request.CreateRoomRequest) (*response.RoomCreatedResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create room validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	if req.BookingID != nil {
		pending, err := s.repo.PendingSession.FindByID(ctx, *req.BookingID)
		if err != nil {
			return nil, fmt.Errorf("load booking for room: %w", err)
		}
		if pending == nil {
			return nil, fmt.Errorf("booking %d %w", *req.BookingID, ErrNotFound)
		}
	}

	createdAt := s.now().UTC().Truncate(time.Second)
	room := &entity.Room{
		BookingID: req.BookingID,
		TutorID:   req.TutorID,
		Status:    entity.RoomStatusPending,
		CreatedAt: createdAt,
	}
	if req.ExpiresInMinutes != nil {
		expiresAt := createdAt.Add(time.Duration(*req.ExpiresInMinutes) * time.Minute)
		room.ExpiresAt = &expiresAt
	}
	if req.Secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash room secret: %w", err)
		}
		h := string(hash)
		room.SecretToken = &h
	}

	// 48 random bits; a collision is retried rather than surfaced
	var err error
	for attempt := 0; attempt < roomIDAttempts; attempt++ {
		room.ID, err = utils.GenerateRoomID()
		if err != nil {
			return nil, err
		}
		if err = s.repo.Room.Create(ctx, room); err == nil {
			break
		}
		s.log.Warn("Room insert failed, retrying with a new id",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.log.Info("Room created",
		zap.String("room_id", room.ID),
		zap.Any("booking_id", room.BookingID),
		zap.Any("expires_at", room.ExpiresAt),
	)

	return &response.RoomCreatedResponse{RoomID: room.ID, ExpiresAt: room.ExpiresAt}, nil
}

func (s *roomService) GetRoom(ctx context.Context, id string) (*response.RoomResponse, error) {
	room, err := s.findRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := response.RoomToResponse(room)
	return &resp, nil
}

func (s *roomService) ListRooms(ctx context.Context, req *request.ListRequest) (*response.ListResponse[response.RoomResponse], error) {
	limit := req.Bounded()

	rooms, err := s.repo.Room.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	data := make([]response.RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		data = append(data, response.RoomToResponse(r))
	}

	return response.NewListResponse(data, limit), nil
}

func (s *roomService) CloseRoom(ctx context.Context, id string) error {
	if _, err := s.findRoom(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Room.Close(ctx, id); err != nil {
		return fmt.Errorf("close room: %w", err)
	}
	return nil
}

// AdmitJoin rejects unknown, closed and expired rooms, and checks the secret
// when the room has one. The first admitted join activates the room.
func (s *roomService) AdmitJoin(ctx context.Context, id, secret string) error {
	room, err := s.findRoom(ctx, id)
	if err != nil {
		return err
	}

	if room.Status == entity.RoomStatusClosed {
		return fmt.Errorf("%w: room %s is closed", ErrConflict, id)
	}
	if room.Expired(s.now()) {
		return fmt.Errorf("%w: room %s has expired", ErrConflict, id)
	}
	if room.SecretToken != nil {
		if bcrypt.CompareHashAndPassword([]byte(*room.SecretToken), []byte(secret)) != nil {
			return fmt.Errorf("%w: invalid room secret", ErrForbidden)
		}
	}

	if room.Status == entity.RoomStatusPending {
		if err := s.repo.Room.MarkActive(ctx, id); err != nil {
			return fmt.Errorf("activate room: %w", err)
		}
	}

	return nil
}

func (s *roomService) findRoom(ctx context.Context, id string) (*entity.Room, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: room id is required", ErrValidation)
	}

	room, err := s.repo.Room.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	if room == nil {
		return nil, fmt.Errorf("room %s %w", id, ErrNotFound)
	}
	return room, nil
}
