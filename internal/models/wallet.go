package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry kinds
const (
	EntryKindCredit = "credit"
	EntryKindDebit  = "debit"
)

type Wallet struct {
	OwnerID   string          `json:"owner_id" db:"owner_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Currency  string          `json:"currency" db:"currency"`
	Version   int64           `json:"-" db:"version"` // for optimistic locking
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// LedgerEntry is an immutable record of one credit or debit against a
// wallet. Entries are append-only; corrections are made with an opposing
// entry, never by editing.
type LedgerEntry struct {
	ID          string          `json:"id" db:"id"`
	WalletID    string          `json:"wallet_id" db:"wallet_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"` // always positive, sign comes from Kind
	Kind        string          `json:"kind" db:"kind"`     // credit or debit
	Note        string          `json:"note" db:"note"`
	ReferenceID string          `json:"reference_id,omitempty" db:"reference_id"` // idempotency key, unique when set
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Signed returns the entry amount with the sign implied by its kind.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Kind == EntryKindDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
