package store

import (
	"context"
	"sync"
	"time"

	"github.com/mindhaven/backend/internal/models"
)

// Memory is an in-process Store used by tests and local development. It
// reproduces the Postgres semantics: versioned aggregate writes and
// uniqueness of entry idempotency keys, all under one lock so each
// update is a single atomic unit.
type Memory struct {
	mu sync.RWMutex

	wallets       map[string]models.Wallet
	ledgerEntries map[string][]models.LedgerEntry
	references    map[string]bool

	earnings       map[string]models.CounselorEarnings
	earningEntries map[string][]models.EarningEntry
	earningOrders  map[string]bool

	transactions map[string]models.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		wallets:        make(map[string]models.Wallet),
		ledgerEntries:  make(map[string][]models.LedgerEntry),
		references:     make(map[string]bool),
		earnings:       make(map[string]models.CounselorEarnings),
		earningEntries: make(map[string][]models.EarningEntry),
		earningOrders:  make(map[string]bool),
		transactions:   make(map[string]models.Transaction),
	}
}

func (m *Memory) GetWallet(_ context.Context, ownerID string) (*models.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[ownerID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return &w, nil
}

func (m *Memory) CreateWallet(_ context.Context, w *models.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[w.OwnerID]; ok {
		return ErrWalletExists
	}
	now := time.Now().UTC()
	w.Version = 1
	w.CreatedAt = now
	w.UpdatedAt = now
	m.wallets[w.OwnerID] = *w
	return nil
}

func (m *Memory) UpdateWallet(_ context.Context, w *models.Wallet, entry *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.wallets[w.OwnerID]
	if !ok {
		return ErrWalletNotFound
	}
	if current.Version != w.Version {
		return ErrVersionConflict
	}
	if entry.ReferenceID != "" && m.references[entry.ReferenceID] {
		return ErrDuplicateReference
	}

	w.Version++
	w.UpdatedAt = time.Now().UTC()
	m.wallets[w.OwnerID] = *w

	entry.CreatedAt = w.UpdatedAt
	m.ledgerEntries[w.OwnerID] = append(m.ledgerEntries[w.OwnerID], *entry)
	if entry.ReferenceID != "" {
		m.references[entry.ReferenceID] = true
	}
	return nil
}

func (m *Memory) ListLedgerEntries(_ context.Context, ownerID string) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.ledgerEntries[ownerID]
	// Stored in append order; returned newest first.
	result := make([]models.LedgerEntry, len(entries))
	for i, e := range entries {
		result[len(entries)-1-i] = e
	}
	return result, nil
}

func (m *Memory) GetEarnings(_ context.Context, counselorID string) (*models.CounselorEarnings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.earnings[counselorID]
	if !ok {
		return nil, ErrEarningsNotFound
	}
	return &e, nil
}

func (m *Memory) CreateEarnings(_ context.Context, e *models.CounselorEarnings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.earnings[e.CounselorID]; ok {
		return ErrEarningsExists
	}
	now := time.Now().UTC()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now
	m.earnings[e.CounselorID] = *e
	return nil
}

func (m *Memory) UpdateEarnings(_ context.Context, e *models.CounselorEarnings, entry *models.EarningEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.earnings[e.CounselorID]
	if !ok {
		return ErrEarningsNotFound
	}
	if current.Version != e.Version {
		return ErrVersionConflict
	}
	if m.earningOrders[entry.OrderID] {
		return ErrDuplicateOrder
	}

	e.Version++
	e.UpdatedAt = time.Now().UTC()
	m.earnings[e.CounselorID] = *e

	entry.CreatedAt = e.UpdatedAt
	m.earningEntries[e.CounselorID] = append(m.earningEntries[e.CounselorID], *entry)
	m.earningOrders[entry.OrderID] = true
	return nil
}

func (m *Memory) ListEarningEntries(_ context.Context, counselorID string) ([]models.EarningEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.earningEntries[counselorID]
	result := make([]models.EarningEntry, len(entries))
	for i, e := range entries {
		result[len(entries)-1-i] = e
	}
	return result, nil
}

func (m *Memory) GetTransaction(_ context.Context, orderID string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[orderID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &t, nil
}

func (m *Memory) CreateTransaction(_ context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[t.OrderID]; ok {
		return ErrTransactionExists
	}
	now := time.Now().UTC()
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	m.transactions[t.OrderID] = *t
	return nil
}

func (m *Memory) UpdateTransaction(_ context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.transactions[t.OrderID]
	if !ok {
		return ErrTransactionNotFound
	}
	if current.Version != t.Version {
		return ErrVersionConflict
	}

	t.Version++
	t.UpdatedAt = time.Now().UTC()
	m.transactions[t.OrderID] = *t
	return nil
}
