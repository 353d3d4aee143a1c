package repository

import (
	"context"
	"fmt"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SessionRepository interface {
	FindByPendingID(ctx context.Context, pendingID int64) (*entity.Session, error)
}

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

const sessionColumns = `id, pending_session_id, parent_name, child_name, email, session_type,
	date, time, payment_status, payment_provider, payment_ref, created_at, updated_at`

func scanSession(row pgx.Row) (*entity.Session, error) {
	var s entity.Session
	err := row.Scan(
		&s.ID,
		&s.PendingSessionID,
		&s.ParentName,
		&s.ChildName,
		&s.Email,
		&s.SessionType,
		&s.Date,
		&s.Time,
		&s.PaymentStatus,
		&s.PaymentProvider,
		&s.PaymentRef,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) FindByPendingID(ctx context.Context, pendingID int64) (*entity.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE pending_session_id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, pendingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session by pending ID",
			zap.Error(err),
			zap.Int64("pending_session_id", pendingID),
		)
		return nil, fmt.Errorf("find session by pending ID %d: %w", pendingID, err)
	}

	return session, nil
}
