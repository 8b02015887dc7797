package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mindhaven/backend/internal/models"
	"github.com/mindhaven/backend/internal/store"
)

const (
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 10 * time.Millisecond

	defaultCreditNote = "Wallet recharge"
	defaultDebitNote  = "Service payment"

	balanceCacheTTL = 30 * time.Minute
)

// LedgerService is the transaction engine: every balance mutation in the
// system goes through one of its two apply operations. Each apply is a
// single versioned store write; when a concurrent writer wins the race
// the engine reloads and retries with exponential backoff, and gives up
// with ErrTransactionAborted once the attempt budget is spent.
type LedgerService struct {
	store        store.Store
	cache        *redis.Client // optional, nil disables caching
	currency     string
	maxAttempts  int
	retryBackoff time.Duration
}

func NewLedgerService(st store.Store, cache *redis.Client, currency string) *LedgerService {
	if currency == "" {
		currency = "INR"
	}
	return &LedgerService{
		store:        st,
		cache:        cache,
		currency:     currency,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
}

// ApplyWalletTransaction applies one credit or debit to the owner's
// wallet and appends the matching ledger entry as a single atomic unit.
// A credit creates the wallet when it does not exist yet; a debit
// requires it. referenceID, when set, is an idempotency key: a second
// apply with the same key returns ErrAlreadyApplied and mutates nothing.
func (s *LedgerService) ApplyWalletTransaction(ctx context.Context, userID string, amount decimal.Decimal, kind, note, referenceID string) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if kind != models.EntryKindCredit && kind != models.EntryKindDebit {
		return decimal.Zero, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, kind)
	}
	if note == "" {
		if kind == models.EntryKindCredit {
			note = defaultCreditNote
		} else {
			note = defaultDebitNote
		}
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return decimal.Zero, err
			}
		}

		wallet, err := s.store.GetWallet(ctx, userID)
		if errors.Is(err, store.ErrWalletNotFound) {
			if kind == models.EntryKindDebit {
				return decimal.Zero, ErrWalletNotFound
			}
			wallet = &models.Wallet{OwnerID: userID, Balance: decimal.Zero, Currency: s.currency}
			if cerr := s.store.CreateWallet(ctx, wallet); cerr != nil {
				if errors.Is(cerr, store.ErrWalletExists) {
					continue // lost the creation race, reload
				}
				return decimal.Zero, fmt.Errorf("create wallet: %w", cerr)
			}
		} else if err != nil {
			return decimal.Zero, fmt.Errorf("load wallet: %w", err)
		}

		if kind == models.EntryKindDebit && wallet.Balance.LessThan(amount) {
			return decimal.Zero, ErrInsufficientFunds
		}

		if kind == models.EntryKindCredit {
			wallet.Balance = wallet.Balance.Add(amount)
		} else {
			wallet.Balance = wallet.Balance.Sub(amount)
		}

		entry := &models.LedgerEntry{
			ID:          uuid.NewString(),
			WalletID:    userID,
			Amount:      amount,
			Kind:        kind,
			Note:        note,
			ReferenceID: referenceID,
		}

		err = s.store.UpdateWallet(ctx, wallet, entry)
		switch {
		case err == nil:
			s.invalidateBalance(ctx, userID)
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"kind":    kind,
				"amount":  amount.String(),
				"balance": wallet.Balance.String(),
			}).Info("wallet transaction applied")
			return wallet.Balance, nil
		case errors.Is(err, store.ErrVersionConflict):
			continue
		case errors.Is(err, store.ErrDuplicateReference):
			return decimal.Zero, ErrAlreadyApplied
		default:
			return decimal.Zero, fmt.Errorf("apply wallet transaction: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{"user_id": userID, "kind": kind}).Warn("wallet transaction exhausted retries")
	return decimal.Zero, ErrTransactionAborted
}

// ApplyCounselorEarning accrues one reconciled payment onto the
// counselor's earnings aggregate and appends the earning entry, keyed by
// orderID for de-duplication. The counselor aggregate must already
// exist.
func (s *LedgerService) ApplyCounselorEarning(ctx context.Context, counselorID string, amount decimal.Decimal, orderID, userID, status string) error {
	if counselorID == "" || orderID == "" {
		return fmt.Errorf("%w: counselor id and order id are required", ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return err
			}
		}

		earnings, err := s.store.GetEarnings(ctx, counselorID)
		if errors.Is(err, store.ErrEarningsNotFound) {
			return ErrCounselorNotFound
		}
		if err != nil {
			return fmt.Errorf("load earnings: %w", err)
		}

		earnings.TotalEarnings = earnings.TotalEarnings.Add(amount)
		earnings.PendingAmount = earnings.PendingAmount.Add(amount)

		entry := &models.EarningEntry{
			ID:          uuid.NewString(),
			CounselorID: counselorID,
			Amount:      amount,
			OrderID:     orderID,
			UserID:      userID,
			Status:      status,
		}

		err = s.store.UpdateEarnings(ctx, earnings, entry)
		switch {
		case err == nil:
			s.invalidateEarnings(ctx, counselorID)
			logrus.WithFields(logrus.Fields{
				"counselor_id": counselorID,
				"order_id":     orderID,
				"amount":       amount.String(),
			}).Info("counselor earning applied")
			return nil
		case errors.Is(err, store.ErrVersionConflict):
			continue
		case errors.Is(err, store.ErrDuplicateOrder):
			return ErrAlreadyApplied
		default:
			return fmt.Errorf("apply counselor earning: %w", err)
		}
	}

	return ErrTransactionAborted
}

// GetBalance reads a wallet balance through the cache.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, balanceCacheKey(userID)).Result()
		if err == nil {
			if balance, derr := decimal.NewFromString(cached); derr == nil {
				return balance, nil
			}
		} else if err != redis.Nil {
			logrus.WithError(err).Debug("balance cache read failed")
		}
	}

	wallet, err := s.store.GetWallet(ctx, userID)
	if errors.Is(err, store.ErrWalletNotFound) {
		return decimal.Zero, ErrWalletNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, balanceCacheKey(userID), wallet.Balance.String(), balanceCacheTTL).Err(); err != nil {
			logrus.WithError(err).Debug("balance cache write failed")
		}
	}
	return wallet.Balance, nil
}

// GetEarnings reads a counselor's earnings aggregate through the cache.
func (s *LedgerService) GetEarnings(ctx context.Context, counselorID string) (*models.CounselorEarnings, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, earningsCacheKey(counselorID)).Result()
		if err == nil {
			var earnings models.CounselorEarnings
			if jerr := json.Unmarshal([]byte(cached), &earnings); jerr == nil {
				return &earnings, nil
			}
		} else if err != redis.Nil {
			logrus.WithError(err).Debug("earnings cache read failed")
		}
	}

	earnings, err := s.store.GetEarnings(ctx, counselorID)
	if errors.Is(err, store.ErrEarningsNotFound) {
		return nil, ErrCounselorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read earnings: %w", err)
	}

	if s.cache != nil {
		if payload, jerr := json.Marshal(earnings); jerr == nil {
			if err := s.cache.Set(ctx, earningsCacheKey(counselorID), payload, balanceCacheTTL).Err(); err != nil {
				logrus.WithError(err).Debug("earnings cache write failed")
			}
		}
	}
	return earnings, nil
}

func (s *LedgerService) ListEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	if _, err := s.store.GetWallet(ctx, userID); errors.Is(err, store.ErrWalletNotFound) {
		return nil, ErrWalletNotFound
	} else if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return s.store.ListLedgerEntries(ctx, userID)
}

func (s *LedgerService) ListEarningEntries(ctx context.Context, counselorID string) ([]models.EarningEntry, error) {
	if _, err := s.store.GetEarnings(ctx, counselorID); errors.Is(err, store.ErrEarningsNotFound) {
		return nil, ErrCounselorNotFound
	} else if err != nil {
		return nil, fmt.Errorf("load earnings: %w", err)
	}
	return s.store.ListEarningEntries(ctx, counselorID)
}

// CreateCounselorEarnings provisions the empty earnings aggregate when a
// counselor is onboarded. Safe to call twice.
func (s *LedgerService) CreateCounselorEarnings(ctx context.Context, counselorID string) error {
	if counselorID == "" {
		return fmt.Errorf("%w: counselor id is required", ErrInvalidInput)
	}
	err := s.store.CreateEarnings(ctx, &models.CounselorEarnings{
		CounselorID:   counselorID,
		TotalEarnings: decimal.Zero,
		PendingAmount: decimal.Zero,
	})
	if errors.Is(err, store.ErrEarningsExists) {
		return nil
	}
	return err
}

func (s *LedgerService) backoff(ctx context.Context, attempt int) error {
	delay := s.retryBackoff << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransactionAborted, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (s *LedgerService) invalidateBalance(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, balanceCacheKey(userID)).Err(); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Debug("balance cache invalidation failed")
	}
}

func (s *LedgerService) invalidateEarnings(ctx context.Context, counselorID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, earningsCacheKey(counselorID)).Err(); err != nil {
		logrus.WithError(err).WithField("counselor_id", counselorID).Debug("earnings cache invalidation failed")
	}
}

func balanceCacheKey(userID string) string {
	return "wallet:balance:" + userID
}

func earningsCacheKey(counselorID string) string {
	return "counselor:earnings:" + counselorID
}
