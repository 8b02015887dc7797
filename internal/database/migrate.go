package database

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		owner_id   TEXT PRIMARY KEY,
		balance    NUMERIC(14,2) NOT NULL DEFAULT 0,
		currency   TEXT NOT NULL DEFAULT 'INR',
		version    BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT wallets_balance_non_negative CHECK (balance >= 0)
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id           TEXT PRIMARY KEY,
		wallet_id    TEXT NOT NULL REFERENCES wallets(owner_id),
		amount       NUMERIC(14,2) NOT NULL,
		kind         TEXT NOT NULL,
		note         TEXT NOT NULL DEFAULT '',
		reference_id TEXT,
		created_at   TIMESTAMPTZ NOT NULL,
		CONSTRAINT ledger_entries_amount_positive CHECK (amount > 0),
		CONSTRAINT ledger_entries_kind CHECK (kind IN ('credit', 'debit'))
	)`,

	// Idempotency key for gateway-driven credits: at most one entry per
	// external reference.
	`CREATE UNIQUE INDEX IF NOT EXISTS ledger_entries_reference_id_key
		ON ledger_entries (reference_id) WHERE reference_id IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS ledger_entries_wallet_id_idx
		ON ledger_entries (wallet_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS counselor_earnings (
		counselor_id   TEXT PRIMARY KEY,
		total_earnings NUMERIC(14,2) NOT NULL DEFAULT 0,
		pending_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		version        BIGINT NOT NULL DEFAULT 1,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS earning_entries (
		id           TEXT PRIMARY KEY,
		counselor_id TEXT NOT NULL REFERENCES counselor_earnings(counselor_id),
		amount       NUMERIC(14,2) NOT NULL,
		order_id     TEXT NOT NULL UNIQUE,
		user_id      TEXT NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		CONSTRAINT earning_entries_amount_positive CHECK (amount > 0)
	)`,

	`CREATE INDEX IF NOT EXISTS earning_entries_counselor_id_idx
		ON earning_entries (counselor_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		order_id     TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		counselor_id TEXT,
		amount       NUMERIC(14,2) NOT NULL,
		currency     TEXT NOT NULL DEFAULT 'INR',
		status       TEXT NOT NULL DEFAULT 'PENDING',
		payment_mode TEXT NOT NULL DEFAULT '',
		reference_id TEXT NOT NULL DEFAULT '',
		tx_status    TEXT NOT NULL DEFAULT '',
		tx_time      TEXT NOT NULL DEFAULT '',
		tx_msg       TEXT NOT NULL DEFAULT '',
		funds_moved  BOOLEAN NOT NULL DEFAULT FALSE,
		version      BIGINT NOT NULL DEFAULT 1,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS transactions_user_id_idx
		ON transactions (user_id, created_at DESC)`,
}

// Migrate applies the schema. Statements are idempotent, so running the
// migration against an existing database is safe.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	logrus.WithField("statements", len(migrations)).Info("schema migration complete")
	return nil
}
