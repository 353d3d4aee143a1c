package database

import (
	"context"
	"fmt"
)

// schema creates the four tables on a fresh database. Statements are
// idempotent, so running them on every boot is safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pending_sessions (
		id           BIGSERIAL PRIMARY KEY,
		parent_name  VARCHAR(255) NOT NULL,
		child_name   VARCHAR(255) NOT NULL,
		email        VARCHAR(255) NOT NULL,
		session_type VARCHAR(100) NOT NULL,
		date         VARCHAR(10)  NOT NULL,
		time         VARCHAR(5)   NOT NULL,
		phone        VARCHAR(20),
		amount       BIGINT       NOT NULL DEFAULT 0,
		processed    BOOLEAN      NOT NULL DEFAULT false,
		checkout_ref VARCHAR(100),
		created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_sessions_match
		ON pending_sessions (phone, amount, created_at DESC) WHERE NOT processed`,
	`CREATE INDEX IF NOT EXISTS idx_pending_sessions_checkout_ref
		ON pending_sessions (checkout_ref) WHERE checkout_ref IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id                 BIGSERIAL PRIMARY KEY,
		pending_session_id BIGINT UNIQUE,
		parent_name        VARCHAR(255) NOT NULL,
		child_name         VARCHAR(255) NOT NULL,
		email              VARCHAR(255) NOT NULL,
		session_type       VARCHAR(100) NOT NULL,
		date               VARCHAR(10)  NOT NULL,
		time               VARCHAR(5)   NOT NULL,
		payment_status     VARCHAR(20)  NOT NULL DEFAULT 'unpaid',
		payment_provider   VARCHAR(20),
		payment_ref        VARCHAR(255),
		created_at         TIMESTAMPTZ  NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id                 BIGSERIAL PRIMARY KEY,
		pending_session_id BIGINT,
		provider           VARCHAR(20)  NOT NULL,
		provider_ref       VARCHAR(255),
		status             VARCHAR(20)  NOT NULL,
		raw_response       JSONB,
		created_at         TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id           VARCHAR(64) PRIMARY KEY,
		booking_id   BIGINT,
		tutor_id     BIGINT,
		status       VARCHAR(20) NOT NULL DEFAULT 'pending',
		secret_token VARCHAR(255),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at   TIMESTAMPTZ
	)`,
}

// EnsureSchema runs the bootstrap DDL in one transaction.
func EnsureSchema(ctx context.Context, db PgxIface) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return tx.Commit(ctx)
}
