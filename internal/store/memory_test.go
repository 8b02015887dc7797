package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindhaven/backend/internal/models"
)

func TestMemory_WalletVersioning(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	w := &models.Wallet{OwnerID: "user1", Balance: decimal.Zero, Currency: "INR"}
	require.NoError(t, m.CreateWallet(ctx, w))
	assert.Equal(t, int64(1), w.Version)

	assert.ErrorIs(t, m.CreateWallet(ctx, &models.Wallet{OwnerID: "user1"}), ErrWalletExists)

	t.Run("stale version is rejected", func(t *testing.T) {
		stale := *w
		fresh := *w

		fresh.Balance = decimal.NewFromInt(100)
		require.NoError(t, m.UpdateWallet(ctx, &fresh, &models.LedgerEntry{
			ID: "e1", WalletID: "user1", Amount: decimal.NewFromInt(100), Kind: models.EntryKindCredit,
		}))
		assert.Equal(t, int64(2), fresh.Version)

		stale.Balance = decimal.NewFromInt(50)
		err := m.UpdateWallet(ctx, &stale, &models.LedgerEntry{
			ID: "e2", WalletID: "user1", Amount: decimal.NewFromInt(50), Kind: models.EntryKindCredit,
		})
		assert.ErrorIs(t, err, ErrVersionConflict)

		got, err := m.GetWallet(ctx, "user1")
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
	})

	t.Run("duplicate reference is rejected", func(t *testing.T) {
		current, err := m.GetWallet(ctx, "user1")
		require.NoError(t, err)

		current.Balance = current.Balance.Add(decimal.NewFromInt(10))
		require.NoError(t, m.UpdateWallet(ctx, current, &models.LedgerEntry{
			ID: "e3", WalletID: "user1", Amount: decimal.NewFromInt(10),
			Kind: models.EntryKindCredit, ReferenceID: "order-42",
		}))

		current, err = m.GetWallet(ctx, "user1")
		require.NoError(t, err)
		current.Balance = current.Balance.Add(decimal.NewFromInt(10))
		err = m.UpdateWallet(ctx, current, &models.LedgerEntry{
			ID: "e4", WalletID: "user1", Amount: decimal.NewFromInt(10),
			Kind: models.EntryKindCredit, ReferenceID: "order-42",
		})
		assert.ErrorIs(t, err, ErrDuplicateReference)

		entries, err := m.ListLedgerEntries(ctx, "user1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("missing wallet", func(t *testing.T) {
		_, err := m.GetWallet(ctx, "nobody")
		assert.ErrorIs(t, err, ErrWalletNotFound)
		err = m.UpdateWallet(ctx, &models.Wallet{OwnerID: "nobody", Version: 1}, &models.LedgerEntry{ID: "e5"})
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})
}

func TestMemory_EarningsVersioning(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	e := &models.CounselorEarnings{CounselorID: "c1", TotalEarnings: decimal.Zero, PendingAmount: decimal.Zero}
	require.NoError(t, m.CreateEarnings(ctx, e))

	e.TotalEarnings = decimal.NewFromInt(100)
	e.PendingAmount = decimal.NewFromInt(100)
	require.NoError(t, m.UpdateEarnings(ctx, e, &models.EarningEntry{
		ID: "ee1", CounselorID: "c1", Amount: decimal.NewFromInt(100),
		OrderID: "order-1", UserID: "user1", Status: models.OrderStatusSuccess,
	}))

	t.Run("duplicate order id is rejected", func(t *testing.T) {
		current, err := m.GetEarnings(ctx, "c1")
		require.NoError(t, err)
		current.TotalEarnings = current.TotalEarnings.Add(decimal.NewFromInt(100))
		err = m.UpdateEarnings(ctx, current, &models.EarningEntry{
			ID: "ee2", CounselorID: "c1", Amount: decimal.NewFromInt(100),
			OrderID: "order-1", UserID: "user1", Status: models.OrderStatusSuccess,
		})
		assert.ErrorIs(t, err, ErrDuplicateOrder)

		entries, err := m.ListEarningEntries(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		got, err := m.GetEarnings(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, got.TotalEarnings.Equal(decimal.NewFromInt(100)))
	})

	t.Run("missing counselor", func(t *testing.T) {
		_, err := m.GetEarnings(ctx, "c2")
		assert.ErrorIs(t, err, ErrEarningsNotFound)
	})
}

func TestMemory_TransactionVersioning(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	tx := &models.Transaction{
		OrderID: "T1", UserID: "user1", Amount: decimal.NewFromInt(100),
		Currency: "INR", Status: models.OrderStatusPending,
	}
	require.NoError(t, m.CreateTransaction(ctx, tx))
	assert.ErrorIs(t, m.CreateTransaction(ctx, &models.Transaction{OrderID: "T1"}), ErrTransactionExists)

	stale := *tx
	tx.Status = models.OrderStatusSuccess
	require.NoError(t, m.UpdateTransaction(ctx, tx))

	stale.Status = models.OrderStatusFailed
	assert.ErrorIs(t, m.UpdateTransaction(ctx, &stale), ErrVersionConflict)

	got, err := m.GetTransaction(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusSuccess, got.Status)

	_, err = m.GetTransaction(ctx, "T2")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestMemory_ListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	w := &models.Wallet{OwnerID: "user1", Balance: decimal.Zero, Currency: "INR"}
	require.NoError(t, m.CreateWallet(ctx, w))
	for _, id := range []string{"e1", "e2", "e3"} {
		w.Balance = w.Balance.Add(decimal.NewFromInt(10))
		require.NoError(t, m.UpdateWallet(ctx, w, &models.LedgerEntry{
			ID: id, WalletID: "user1", Amount: decimal.NewFromInt(10), Kind: models.EntryKindCredit,
		}))
	}

	entries, err := m.ListLedgerEntries(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "e3", entries[0].ID)
	assert.Equal(t, "e1", entries[2].ID)
}

func TestMemory_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreateWallet(ctx, &models.Wallet{OwnerID: "user1", Balance: decimal.Zero}))

	got, err := m.GetWallet(ctx, "user1")
	require.NoError(t, err)
	got.Balance = decimal.NewFromInt(999)

	again, err := m.GetWallet(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, again.Balance.IsZero())
}
