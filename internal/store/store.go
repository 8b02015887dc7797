// Package store holds the durable state of the ledger: wallet and
// counselor-earning aggregates, their append-only entry logs, and the
// payment transaction records.
//
// Every aggregate carries a version. The Update methods are
// compare-and-swap writes: they succeed only when the caller's copy is
// still current, bump the version, and apply the aggregate mutation and
// its entry append as one atomic unit. Callers that lose the race get
// ErrVersionConflict and are expected to reload and retry.
package store

import (
	"context"
	"errors"

	"github.com/mindhaven/backend/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrEarningsNotFound    = errors.New("counselor earnings not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrWalletExists      = errors.New("wallet already exists")
	ErrEarningsExists    = errors.New("counselor earnings already exist")
	ErrTransactionExists = errors.New("transaction already exists")

	// ErrVersionConflict means a concurrent writer committed first.
	ErrVersionConflict = errors.New("aggregate version conflict")

	// ErrDuplicateReference means a ledger entry with the same
	// reference id was already appended.
	ErrDuplicateReference = errors.New("duplicate ledger entry reference")

	// ErrDuplicateOrder means an earning entry for the order id was
	// already appended.
	ErrDuplicateOrder = errors.New("duplicate earning entry for order")
)

type Store interface {
	GetWallet(ctx context.Context, ownerID string) (*models.Wallet, error)
	CreateWallet(ctx context.Context, w *models.Wallet) error
	// UpdateWallet writes the wallet balance and appends one ledger
	// entry atomically, guarded by w.Version. On success the wallet's
	// version is advanced in place.
	UpdateWallet(ctx context.Context, w *models.Wallet, entry *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, ownerID string) ([]models.LedgerEntry, error)

	GetEarnings(ctx context.Context, counselorID string) (*models.CounselorEarnings, error)
	CreateEarnings(ctx context.Context, e *models.CounselorEarnings) error
	// UpdateEarnings writes the earnings totals and appends one earning
	// entry atomically, guarded by e.Version.
	UpdateEarnings(ctx context.Context, e *models.CounselorEarnings, entry *models.EarningEntry) error
	ListEarningEntries(ctx context.Context, counselorID string) ([]models.EarningEntry, error)

	GetTransaction(ctx context.Context, orderID string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	// UpdateTransaction is a versioned write of the transaction record.
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
}
