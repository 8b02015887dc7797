package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mindhaven/backend/internal/models"
)

const pqUniqueViolation = "23505"

// Postgres implements Store on database/sql. Aggregate updates run as a
// SQL transaction pairing an optimistic-locked UPDATE (version check in
// the WHERE clause) with the entry INSERT. Unique indexes on
// ledger_entries.reference_id and earning_entries.order_id back the
// idempotency keys.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) GetWallet(ctx context.Context, ownerID string) (*models.Wallet, error) {
	var w models.Wallet
	err := p.db.QueryRowContext(ctx, `
		SELECT owner_id, balance, currency, version, created_at, updated_at
		FROM wallets
		WHERE owner_id = $1`, ownerID).
		Scan(&w.OwnerID, &w.Balance, &w.Currency, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (p *Postgres) CreateWallet(ctx context.Context, w *models.Wallet) error {
	now := time.Now().UTC()
	w.Version = 1
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO wallets (owner_id, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		w.OwnerID, w.Balance, w.Currency, w.Version, w.CreatedAt, w.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrWalletExists
	}
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateWallet(ctx context.Context, w *models.Wallet, entry *models.LedgerEntry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	updatedAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE owner_id = $3 AND version = $4`,
		w.Balance, updatedAt, w.OwnerID, w.Version)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	entry.CreatedAt = updatedAt
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, wallet_id, amount, kind, note, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.WalletID, entry.Amount, entry.Kind, entry.Note,
		nullable(entry.ReferenceID), entry.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.Version++
	w.UpdatedAt = updatedAt
	return nil
}

func (p *Postgres) ListLedgerEntries(ctx context.Context, ownerID string) ([]models.LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, wallet_id, amount, kind, note, COALESCE(reference_id, ''), created_at
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Amount, &e.Kind, &e.Note, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *Postgres) GetEarnings(ctx context.Context, counselorID string) (*models.CounselorEarnings, error) {
	var e models.CounselorEarnings
	err := p.db.QueryRowContext(ctx, `
		SELECT counselor_id, total_earnings, pending_amount, version, created_at, updated_at
		FROM counselor_earnings
		WHERE counselor_id = $1`, counselorID).
		Scan(&e.CounselorID, &e.TotalEarnings, &e.PendingAmount, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrEarningsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get earnings: %w", err)
	}
	return &e, nil
}

func (p *Postgres) CreateEarnings(ctx context.Context, e *models.CounselorEarnings) error {
	now := time.Now().UTC()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO counselor_earnings (counselor_id, total_earnings, pending_amount, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.CounselorID, e.TotalEarnings, e.PendingAmount, e.Version, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEarningsExists
	}
	if err != nil {
		return fmt.Errorf("create earnings: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateEarnings(ctx context.Context, e *models.CounselorEarnings, entry *models.EarningEntry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	updatedAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE counselor_earnings
		SET total_earnings = $1, pending_amount = $2, version = version + 1, updated_at = $3
		WHERE counselor_id = $4 AND version = $5`,
		e.TotalEarnings, e.PendingAmount, updatedAt, e.CounselorID, e.Version)
	if err != nil {
		return fmt.Errorf("update earnings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update earnings: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	entry.CreatedAt = updatedAt
	_, err = tx.ExecContext(ctx, `
		INSERT INTO earning_entries (id, counselor_id, amount, order_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.CounselorID, entry.Amount, entry.OrderID, entry.UserID, entry.Status, entry.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("append earning entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	e.Version++
	e.UpdatedAt = updatedAt
	return nil
}

func (p *Postgres) ListEarningEntries(ctx context.Context, counselorID string) ([]models.EarningEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, counselor_id, amount, order_id, user_id, status, created_at
		FROM earning_entries
		WHERE counselor_id = $1
		ORDER BY created_at DESC`, counselorID)
	if err != nil {
		return nil, fmt.Errorf("list earning entries: %w", err)
	}
	defer rows.Close()

	var entries []models.EarningEntry
	for rows.Next() {
		var e models.EarningEntry
		if err := rows.Scan(&e.ID, &e.CounselorID, &e.Amount, &e.OrderID, &e.UserID, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan earning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *Postgres) GetTransaction(ctx context.Context, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	err := p.db.QueryRowContext(ctx, `
		SELECT order_id, user_id, COALESCE(counselor_id, ''), amount, currency, status,
		       payment_mode, reference_id, tx_status, tx_time, tx_msg, funds_moved,
		       version, created_at, updated_at
		FROM transactions
		WHERE order_id = $1`, orderID).
		Scan(&t.OrderID, &t.UserID, &t.CounselorID, &t.Amount, &t.Currency, &t.Status,
			&t.PaymentMode, &t.ReferenceID, &t.TxStatus, &t.TxTime, &t.TxMsg, &t.FundsMoved,
			&t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

func (p *Postgres) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	now := time.Now().UTC()
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions (order_id, user_id, counselor_id, amount, currency, status,
		                          payment_mode, reference_id, tx_status, tx_time, tx_msg,
		                          funds_moved, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.OrderID, t.UserID, nullable(t.CounselorID), t.Amount, t.Currency, t.Status,
		t.PaymentMode, t.ReferenceID, t.TxStatus, t.TxTime, t.TxMsg,
		t.FundsMoved, t.Version, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrTransactionExists
	}
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	updatedAt := time.Now().UTC()
	res, err := p.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, payment_mode = $2, reference_id = $3, tx_status = $4,
		    tx_time = $5, tx_msg = $6, funds_moved = $7, version = version + 1, updated_at = $8
		WHERE order_id = $9 AND version = $10`,
		t.Status, t.PaymentMode, t.ReferenceID, t.TxStatus,
		t.TxTime, t.TxMsg, t.FundsMoved, updatedAt, t.OrderID, t.Version)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	t.Version++
	t.UpdatedAt = updatedAt
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == pqUniqueViolation
}
