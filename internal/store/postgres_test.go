package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindhaven/backend/internal/models"
)

func TestPostgres_GetWallet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := NewPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT owner_id, balance, currency, version, created_at, updated_at FROM wallets").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "balance", "currency", "version", "created_at", "updated_at"}).
				AddRow("user1", "300.00", "INR", 3, time.Now(), time.Now()))

		w, err := p.GetWallet(ctx, "user1")
		require.NoError(t, err)
		assert.True(t, w.Balance.Equal(decimal.NewFromInt(300)))
		assert.Equal(t, int64(3), w.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT owner_id, balance, currency, version, created_at, updated_at FROM wallets").
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "balance", "currency", "version", "created_at", "updated_at"}))

		_, err := p.GetWallet(ctx, "nobody")
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})
}

func TestPostgres_UpdateWallet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := NewPostgres(db)
	ctx := context.Background()

	t.Run("successful update appends entry", func(t *testing.T) {
		w := &models.Wallet{OwnerID: "user1", Balance: decimal.NewFromInt(500), Version: 1}
		entry := &models.LedgerEntry{
			ID: "e1", WalletID: "user1", Amount: decimal.NewFromInt(500),
			Kind: models.EntryKindCredit, Note: "Wallet recharge",
		}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets SET balance").
			WithArgs(w.Balance, sqlmock.AnyArg(), "user1", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("e1", "user1", entry.Amount, models.EntryKindCredit, "Wallet recharge", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, p.UpdateWallet(ctx, w, entry))
		assert.Equal(t, int64(2), w.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version conflict", func(t *testing.T) {
		w := &models.Wallet{OwnerID: "user1", Balance: decimal.NewFromInt(500), Version: 1}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets SET balance").
			WithArgs(w.Balance, sqlmock.AnyArg(), "user1", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := p.UpdateWallet(ctx, w, &models.LedgerEntry{ID: "e2", WalletID: "user1"})
		assert.ErrorIs(t, err, ErrVersionConflict)
		assert.Equal(t, int64(1), w.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate reference", func(t *testing.T) {
		w := &models.Wallet{OwnerID: "user1", Balance: decimal.NewFromInt(600), Version: 2}
		entry := &models.LedgerEntry{
			ID: "e3", WalletID: "user1", Amount: decimal.NewFromInt(100),
			Kind: models.EntryKindCredit, ReferenceID: "order-1",
		}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets SET balance").
			WithArgs(w.Balance, sqlmock.AnyArg(), "user1", int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WillReturnError(&pq.Error{Code: pqUniqueViolation})
		mock.ExpectRollback()

		err := p.UpdateWallet(ctx, w, entry)
		assert.ErrorIs(t, err, ErrDuplicateReference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_ListLedgerEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := NewPostgres(db)

	mock.ExpectQuery("FROM ledger_entries WHERE wallet_id = .+ ORDER BY created_at DESC").
		WithArgs("user1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "amount", "kind", "note", "reference_id", "created_at"}).
			AddRow("e2", "user1", "50.00", "debit", "Service payment", "", time.Now()).
			AddRow("e1", "user1", "100.00", "credit", "Wallet recharge", "order-1", time.Now()))

	entries, err := p.ListLedgerEntries(context.Background(), "user1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2", entries[0].ID)
	assert.Equal(t, "order-1", entries[1].ReferenceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateEarnings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := NewPostgres(db)
	ctx := context.Background()

	t.Run("duplicate order id", func(t *testing.T) {
		e := &models.CounselorEarnings{
			CounselorID: "c1", TotalEarnings: decimal.NewFromInt(100),
			PendingAmount: decimal.NewFromInt(100), Version: 1,
		}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE counselor_earnings SET total_earnings").
			WithArgs(e.TotalEarnings, e.PendingAmount, sqlmock.AnyArg(), "c1", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO earning_entries").
			WillReturnError(&pq.Error{Code: pqUniqueViolation})
		mock.ExpectRollback()

		err := p.UpdateEarnings(ctx, e, &models.EarningEntry{
			ID: "ee1", CounselorID: "c1", Amount: decimal.NewFromInt(100), OrderID: "order-1",
		})
		assert.ErrorIs(t, err, ErrDuplicateOrder)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("successful update", func(t *testing.T) {
		e := &models.CounselorEarnings{
			CounselorID: "c1", TotalEarnings: decimal.NewFromInt(200),
			PendingAmount: decimal.NewFromInt(200), Version: 2,
		}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE counselor_earnings SET total_earnings").
			WithArgs(e.TotalEarnings, e.PendingAmount, sqlmock.AnyArg(), "c1", int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO earning_entries").
			WithArgs("ee2", "c1", sqlmock.AnyArg(), "order-2", "user1", models.OrderStatusSuccess, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, p.UpdateEarnings(ctx, e, &models.EarningEntry{
			ID: "ee2", CounselorID: "c1", Amount: decimal.NewFromInt(100),
			OrderID: "order-2", UserID: "user1", Status: models.OrderStatusSuccess,
		}))
		assert.Equal(t, int64(3), e.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_Transactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := NewPostgres(db)
	ctx := context.Background()

	t.Run("get missing transaction", func(t *testing.T) {
		mock.ExpectQuery("SELECT order_id, user_id").
			WithArgs("T404").
			WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

		_, err := p.GetTransaction(ctx, "T404")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("versioned status update", func(t *testing.T) {
		tx := &models.Transaction{
			OrderID: "T1", Status: models.OrderStatusSuccess, PaymentMode: "UPI",
			ReferenceID: "ref-1", TxStatus: "SUCCESS", Version: 1,
		}

		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs(tx.Status, tx.PaymentMode, tx.ReferenceID, tx.TxStatus,
				tx.TxTime, tx.TxMsg, tx.FundsMoved, sqlmock.AnyArg(), "T1", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, p.UpdateTransaction(ctx, tx))
		assert.Equal(t, int64(2), tx.Version)
	})

	t.Run("update race loses", func(t *testing.T) {
		tx := &models.Transaction{OrderID: "T1", Status: models.OrderStatusSuccess, Version: 1}

		mock.ExpectExec("UPDATE transactions SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, p.UpdateTransaction(ctx, tx), ErrVersionConflict)
	})
}
