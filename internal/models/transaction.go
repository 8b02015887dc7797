package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gateway order statuses
const (
	OrderStatusPending = "PENDING"
	OrderStatusSuccess = "SUCCESS"
	OrderStatusFailed  = "FAILED"
)

// Transaction is the record of one externally-initiated payment, tracked
// from initiation through the gateway-reported terminal status. It is
// keyed by the gateway order id.
type Transaction struct {
	OrderID     string          `json:"order_id" db:"order_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	CounselorID string          `json:"counselor_id,omitempty" db:"counselor_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	Status      string          `json:"status" db:"status"`
	PaymentMode string          `json:"payment_mode" db:"payment_mode"`
	ReferenceID string          `json:"reference_id" db:"reference_id"`
	TxStatus    string          `json:"tx_status" db:"tx_status"`
	TxTime      string          `json:"tx_time" db:"tx_time"`
	TxMsg       string          `json:"tx_msg" db:"tx_msg"`
	// FundsMoved records that the wallet credit (and counselor earning,
	// when applicable) for this order has been applied. It is set only
	// after the funds movement committed, so a crash between the status
	// write and the movement leaves it false and the event re-drivable.
	FundsMoved bool      `json:"funds_moved" db:"funds_moved"`
	Version    int64     `json:"-" db:"version"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether a gateway status is terminal.
func Terminal(status string) bool {
	return status == OrderStatusSuccess || status == OrderStatusFailed
}
