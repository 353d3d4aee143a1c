package repository

import (
	"context"
	"fmt"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PendingSessionRepository interface {
	Create(ctx context.Context, pending *entity.PendingSession) error
	FindByID(ctx context.Context, id int64) (*entity.PendingSession, error)

	// Push payment correlation
	SetPushDetails(ctx context.Context, id int64, phone, checkoutRef string) error
	FindUnprocessedByCheckoutRef(ctx context.Context, checkoutRef string) (*entity.PendingSession, error)
	FindUnprocessedByPhoneAmount(ctx context.Context, phone string, amount int64, limit int) ([]*entity.PendingSession, error)
}

type pendingSessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPendingSessionRepository(db database.PgxIface, log *zap.Logger) PendingSessionRepository {
	return &pendingSessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "pending_session")),
	}
}

const pendingColumns = `id, parent_name, child_name, email, session_type, date, time,
	phone, amount, processed, checkout_ref, created_at`

func scanPending(row pgx.Row) (*entity.PendingSession, error) {
	var p entity.PendingSession
	err := row.Scan(
		&p.ID,
		&p.ParentName,
		&p.ChildName,
		&p.Email,
		&p.SessionType,
		&p.Date,
		&p.Time,
		&p.Phone,
		&p.Amount,
		&p.Processed,
		&p.CheckoutRef,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pendingSessionRepository) Create(ctx context.Context, pending *entity.PendingSession) error {
	query := `
		INSERT INTO pending_sessions (parent_name, child_name, email, session_type, date, time, phone, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		pending.ParentName,
		pending.ChildName,
		pending.Email,
		pending.SessionType,
		pending.Date,
		pending.Time,
		pending.Phone,
		pending.Amount,
	).Scan(&pending.ID, &pending.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create pending session",
			zap.Error(err),
			zap.String("email", pending.Email),
		)
		return fmt.Errorf("create pending session for %s: %w", pending.Email, err)
	}

	return nil
}

func (r *pendingSessionRepository) FindByID(ctx context.Context, id int64) (*entity.PendingSession, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_sessions WHERE id = $1`

	pending, err := scanPending(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find pending session by ID",
			zap.Error(err),
			zap.Int64("pending_session_id", id),
		)
		return nil, fmt.Errorf("find pending session by ID %d: %w", id, err)
	}

	return pending, nil
}

// SetPushDetails records the payer phone and, when given, the push request
// id. An empty checkoutRef keeps the stored one.
func (r *pendingSessionRepository) SetPushDetails(ctx context.Context, id int64, phone, checkoutRef string) error {
	query := `
		UPDATE pending_sessions
		SET phone = $2, checkout_ref = COALESCE(NULLIF($3, ''), checkout_ref)
		WHERE id = $1 AND processed = false
	`

	result, err := r.db.Exec(ctx, query, id, phone, checkoutRef)
	if err != nil {
		r.log.Error("Failed to record push details",
			zap.Error(err),
			zap.Int64("pending_session_id", id),
		)
		return fmt.Errorf("record push details for pending session %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("pending session %d not found or already processed", id)
	}

	return nil
}

func (r *pendingSessionRepository) FindUnprocessedByCheckoutRef(ctx context.Context, checkoutRef string) (*entity.PendingSession, error) {
	query := `
		SELECT ` + pendingColumns + `
		FROM pending_sessions
		WHERE checkout_ref = $1 AND processed = false
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	pending, err := scanPending(r.db.QueryRow(ctx, query, checkoutRef))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find pending session by checkout ref",
			zap.Error(err),
			zap.String("checkout_ref", checkoutRef),
		)
		return nil, fmt.Errorf("find pending session by checkout ref %s: %w", checkoutRef, err)
	}

	return pending, nil
}

// FindUnprocessedByPhoneAmount returns at most limit unprocessed records,
// most recently created first.
func (r *pendingSessionRepository) FindUnprocessedByPhoneAmount(ctx context.Context, phone string, amount int64, limit int) ([]*entity.PendingSession, error) {
	query := `
		SELECT ` + pendingColumns + `
		FROM pending_sessions
		WHERE phone = $1 AND amount = $2 AND processed = false
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, phone, amount, limit)
	if err != nil {
		r.log.Error("Failed to find pending sessions by phone and amount",
			zap.Error(err),
			zap.String("phone", phone),
			zap.Int64("amount", amount),
		)
		return nil, fmt.Errorf("find pending sessions by phone %s amount %d: %w", phone, amount, err)
	}
	defer rows.Close()

	var pendings []*entity.PendingSession
	for rows.Next() {
		pending, err := scanPending(rows)
		if err != nil {
			r.log.Error("Failed to scan pending session row", zap.Error(err))
			return nil, fmt.Errorf("scan pending session row: %w", err)
		}
		pendings = append(pendings, pending)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending session rows: %w", err)
	}

	return pendings, nil
}
