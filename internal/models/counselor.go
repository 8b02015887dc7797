package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CounselorEarnings struct {
	CounselorID   string          `json:"counselor_id" db:"counselor_id"`
	TotalEarnings decimal.Decimal `json:"total_earnings" db:"total_earnings"`
	PendingAmount decimal.Decimal `json:"pending_amount" db:"pending_amount"` // accrued but not yet paid out
	Version       int64           `json:"-" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// EarningEntry records one reconciled payment attributed to a counselor.
// OrderID is unique per counselor history; the store rejects duplicates.
type EarningEntry struct {
	ID          string          `json:"id" db:"id"`
	CounselorID string          `json:"counselor_id" db:"counselor_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	OrderID     string          `json:"order_id" db:"order_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
