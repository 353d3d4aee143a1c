package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kids-tutoring/internal/data/entity"
	"kids-tutoring/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrAlreadyProcessed is returned by Confirm when another writer flipped the
// processed flag between the row lock and the update.
var ErrAlreadyProcessed = errors.New("pending session already processed")

// ConfirmParams describes one provider confirmation for a pending session.
type ConfirmParams struct {
	PendingID   int64
	Provider    entity.Provider
	ProviderRef string
	Raw         json.RawMessage
}

// ConfirmResult is what Confirm wrote. Applied is false when the pending
// session had already been processed and nothing was written.
type ConfirmResult struct {
	Pending *entity.PendingSession
	Session *entity.Session
	Payment *entity.Payment
	Applied bool
}

type PaymentRepository interface {
	ListByPendingID(ctx context.Context, pendingID int64) ([]*entity.Payment, error)

	// Confirm materialises the paid session, flips processed and appends the
	// audit row in one transaction. A missing pending session yields nil, nil.
	Confirm(ctx context.Context, params ConfirmParams) (*ConfirmResult, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

func (r *paymentRepository) ListByPendingID(ctx context.Context, pendingID int64) ([]*entity.Payment, error) {
	query := `
		SELECT id, pending_session_id, provider, provider_ref, status, raw_response, created_at
		FROM payments
		WHERE pending_session_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, pendingID)
	if err != nil {
		r.log.Error("Failed to list payments by pending ID",
			zap.Error(err),
			zap.Int64("pending_session_id", pendingID),
		)
		return nil, fmt.Errorf("list payments by pending ID %d: %w", pendingID, err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		var p entity.Payment
		err := rows.Scan(
			&p.ID,
			&p.PendingSessionID,
			&p.Provider,
			&p.ProviderRef,
			&p.Status,
			&p.RawResponse,
			&p.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) Confirm(ctx context.Context, params ConfirmParams) (*ConfirmResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// row lock serialises concurrent confirmations of the same booking
	pending, err := scanPending(tx.QueryRow(ctx,
		`SELECT `+pendingColumns+` FROM pending_sessions WHERE id = $1 FOR UPDATE`,
		params.PendingID,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock pending session",
			zap.Error(err),
			zap.Int64("pending_session_id", params.PendingID),
		)
		return nil, fmt.Errorf("lock pending session %d: %w", params.PendingID, err)
	}

	if pending.Processed {
		session, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE pending_session_id = $1`,
			pending.ID,
		))
		if err != nil && err != pgx.ErrNoRows {
			return nil, fmt.Errorf("load session for pending %d: %w", pending.ID, err)
		}
		return &ConfirmResult{Pending: pending, Session: session}, nil
	}

	provider := string(params.Provider)
	var ref *string
	if params.ProviderRef != "" {
		ref = &params.ProviderRef
	}

	session, err := scanSession(tx.QueryRow(ctx, `
		INSERT INTO sessions (pending_session_id, parent_name, child_name, email, session_type, date, time,
		                      payment_status, payment_provider, payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pending_session_id) DO UPDATE
		SET payment_status = EXCLUDED.payment_status,
		    payment_provider = EXCLUDED.payment_provider,
		    payment_ref = EXCLUDED.payment_ref,
		    updated_at = NOW()
		RETURNING `+sessionColumns,
		pending.ID,
		pending.ParentName,
		pending.ChildName,
		pending.Email,
		pending.SessionType,
		pending.Date,
		pending.Time,
		entity.PaymentStatusPaid,
		provider,
		ref,
	))
	if err != nil {
		r.log.Error("Failed to upsert paid session",
			zap.Error(err),
			zap.Int64("pending_session_id", pending.ID),
		)
		return nil, fmt.Errorf("upsert session for pending %d: %w", pending.ID, err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE pending_sessions SET processed = true WHERE id = $1 AND processed = false`,
		pending.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark pending %d processed: %w", pending.ID, err)
	}
	if result.RowsAffected() != 1 {
		return nil, ErrAlreadyProcessed
	}
	pending.Processed = true

	raw := params.Raw
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	payment := &entity.Payment{
		PendingSessionID: &pending.ID,
		Provider:         params.Provider,
		ProviderRef:      ref,
		Status:           entity.PaymentStatusSuccess,
		RawResponse:      raw,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (pending_session_id, provider, provider_ref, status, raw_response)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		payment.PendingSessionID,
		provider,
		payment.ProviderRef,
		payment.Status,
		payment.RawResponse,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		r.log.Error("Failed to append payment audit row",
			zap.Error(err),
			zap.Int64("pending_session_id", pending.ID),
		)
		return nil, fmt.Errorf("insert payment for pending %d: %w", pending.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit confirm tx: %w", err)
	}

	r.log.Info("Payment confirmed",
		zap.Int64("pending_session_id", pending.ID),
		zap.Int64("session_id", session.ID),
		zap.String("provider", provider),
	)

	return &ConfirmResult{
		Pending: pending,
		Session: session,
		Payment: payment,
		Applied: true,
	}, nil
}
