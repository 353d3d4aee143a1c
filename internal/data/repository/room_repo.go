package repository

import (
	"context"
	"fmt"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	FindByID(ctx context.Context, id string) (*entity.Room, error)
	List(ctx context.Context, limit int) ([]*entity.Room, error)

	// Business queries
	MarkActive(ctx context.Context, id string) error
	Close(ctx context.Context, id string) error
}

type roomRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRoomRepository(db database.PgxIface, log *zap.Logger) RoomRepository {
	return &roomRepository{
		db:  db,
		log: log.With(zap.String("repository", "room")),
	}
}

const roomColumns = `id, booking_id, tutor_id, status, secret_token, created_at, expires_at`

func scanRoom(row pgx.Row) (*entity.Room, error) {
	var room entity.Room
	err := row.Scan(
		&room.ID,
		&room.BookingID,
		&room.TutorID,
		&room.Status,
		&room.SecretToken,
		&room.CreatedAt,
		&room.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) Create(ctx context.Context, room *entity.Room) error {
	query := `
		INSERT INTO rooms (id, booking_id, tutor_id, status, secret_token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		room.ID,
		room.BookingID,
		room.TutorID,
		room.Status,
		room.SecretToken,
		room.CreatedAt,
		room.ExpiresAt,
	)

	if err != nil {
		r.log.Error("Failed to create room",
			zap.Error(err),
			zap.String("room_id", room.ID),
		)
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}

	return nil
}

func (r *roomRepository) FindByID(ctx context.Context, id string) (*entity.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	room, err := scanRoom(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room by ID",
			zap.Error(err),
			zap.String("room_id", id),
		)
		return nil, fmt.Errorf("find room by ID %s: %w", id, err)
	}

	return room, nil
}

func (r *roomRepository) List(ctx context.Context, limit int) ([]*entity.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY created_at DESC, id LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.log.Error("Failed to list rooms", zap.Error(err), zap.Int("limit", limit))
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*entity.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			r.log.Error("Failed to scan room row", zap.Error(err))
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room rows: %w", err)
	}

	return rooms, nil
}

// MarkActive moves a pending room to active. Other states are left alone.
func (r *roomRepository) MarkActive(ctx context.Context, id string) error {
	query := `UPDATE rooms SET status = $2 WHERE id = $1 AND status = $3`

	_, err := r.db.Exec(ctx, query, id, entity.RoomStatusActive, entity.RoomStatusPending)
	if err != nil {
		r.log.Error("Failed to activate room",
			zap.Error(err),
			zap.String("room_id", id),
		)
		return fmt.Errorf("activate room %s: %w", id, err)
	}

	return nil
}

func (r *roomRepository) Close(ctx context.Context, id string) error {
	query := `UPDATE rooms SET status = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, entity.RoomStatusClosed)
	if err != nil {
		r.log.Error("Failed to close room",
			zap.Error(err),
			zap.String("room_id", id),
		)
		return fmt.Errorf("close room %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("room %s not found", id)
	}

	r.log.Info("Room closed", zap.String("room_id", id))
	return nil
}
