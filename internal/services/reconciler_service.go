package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mindhaven/backend/internal/models"
	"github.com/mindhaven/backend/internal/store"
)

const defaultProcessTimeout = 15 * time.Second

// WebhookEvent is the payment-status payload delivered by the gateway.
// Delivery is at-least-once and may be reordered; Signature is verified
// only when a webhook secret is configured.
type WebhookEvent struct {
	OrderID       string          `json:"orderId" validate:"required"`
	OrderAmount   decimal.Decimal `json:"orderAmount"`
	OrderCurrency string          `json:"orderCurrency"`
	OrderStatus   string          `json:"orderStatus" validate:"required"`
	PaymentMode   string          `json:"paymentMode"`
	ReferenceID   string          `json:"referenceId"`
	TxStatus      string          `json:"txStatus"`
	TxTime        string          `json:"txTime"`
	TxMsg         string          `json:"txMsg"`
	Signature     string          `json:"signature"`
}

// ReconcilerService turns the gateway's event stream into exactly-once
// ledger side effects. Status and payment metadata are mirrored onto the
// transaction record unconditionally; the funds movement runs only while
// the record's funds-moved marker is unset, and the ledger entries it
// produces carry the order id as idempotency key, so a redelivery or a
// crash between steps can never apply funds twice.
type ReconcilerService struct {
	store       store.Store
	ledger      *LedgerService
	secret      string
	timeout     time.Duration
	maxAttempts int
}

func NewReconcilerService(st store.Store, ledger *LedgerService, webhookSecret string) *ReconcilerService {
	return &ReconcilerService{
		store:       st,
		ledger:      ledger,
		secret:      webhookSecret,
		timeout:     defaultProcessTimeout,
		maxAttempts: defaultMaxAttempts,
	}
}

// ProcessEvent handles one webhook delivery. Errors wrapping
// ErrInvalidInput, ErrUnauthorized, or ErrOrderNotFound are final; every
// other failure is retryable and leaves the event safe to redeliver.
func (s *ReconcilerService) ProcessEvent(ctx context.Context, ev *WebhookEvent) error {
	if ev.OrderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if !ev.OrderAmount.IsPositive() {
		return fmt.Errorf("%w: order amount must be positive", ErrInvalidInput)
	}
	if s.secret != "" && !s.verifySignature(ev) {
		return fmt.Errorf("%w: webhook signature mismatch", ErrUnauthorized)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.mirrorStatus(ctx, ev)
	if err != nil {
		return err
	}

	if ev.OrderStatus != models.OrderStatusSuccess {
		return nil
	}
	if tx.FundsMoved {
		logrus.WithField("order_id", ev.OrderID).Debug("funds already moved, skipping")
		return nil
	}

	if err := s.moveFunds(ctx, ev, tx); err != nil {
		return err
	}
	return s.markFundsMoved(ctx, ev.OrderID)
}

// mirrorStatus writes the gateway-reported status and payment metadata
// onto the transaction record. The write is a versioned CAS so the
// funds-moved decision below is always based on a state that actually
// committed.
func (s *ReconcilerService) mirrorStatus(ctx context.Context, ev *WebhookEvent) (*models.Transaction, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.ledger.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		tx, err := s.store.GetTransaction(ctx, ev.OrderID)
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil, ErrOrderNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load transaction: %w", err)
		}

		// Deliveries can arrive out of order; a stale non-terminal event
		// must not regress a status the gateway already finalized.
		if models.Terminal(tx.Status) && !models.Terminal(ev.OrderStatus) {
			return tx, nil
		}

		tx.Status = ev.OrderStatus
		tx.PaymentMode = ev.PaymentMode
		tx.ReferenceID = ev.ReferenceID
		tx.TxStatus = ev.TxStatus
		tx.TxTime = ev.TxTime
		tx.TxMsg = ev.TxMsg

		err = s.store.UpdateTransaction(ctx, tx)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("mirror status: %w", err)
		}
		return tx, nil
	}
	return nil, ErrTransactionAborted
}

// moveFunds credits the payer's wallet and, when the payment is
// attributed to a counselor, accrues the earning. Both applies use the
// order id as idempotency key, so a partially completed earlier attempt
// resumes instead of double-crediting.
func (s *ReconcilerService) moveFunds(ctx context.Context, ev *WebhookEvent, tx *models.Transaction) error {
	_, err := s.ledger.ApplyWalletTransaction(ctx, tx.UserID, ev.OrderAmount,
		models.EntryKindCredit, "Payment gateway credit", ev.OrderID)
	if err != nil && !errors.Is(err, ErrAlreadyApplied) {
		if errors.Is(err, ErrWalletNotFound) {
			return fmt.Errorf("%w: wallet for user %s", ErrAggregateNotFound, tx.UserID)
		}
		return fmt.Errorf("credit wallet for order %s: %w", ev.OrderID, err)
	}

	if tx.CounselorID == "" {
		return nil
	}

	err = s.ledger.ApplyCounselorEarning(ctx, tx.CounselorID, ev.OrderAmount,
		ev.OrderID, tx.UserID, ev.OrderStatus)
	if err != nil && !errors.Is(err, ErrAlreadyApplied) {
		if errors.Is(err, ErrCounselorNotFound) {
			return fmt.Errorf("%w: counselor %s", ErrAggregateNotFound, tx.CounselorID)
		}
		return fmt.Errorf("accrue earning for order %s: %w", ev.OrderID, err)
	}
	return nil
}

// markFundsMoved persists the funds-moved marker once the movement has
// committed. If the CAS keeps losing or fails, the funds are in place
// but the marker is not: surface ErrUpstreamInconsistency so the caller
// returns a retryable status and a redelivery re-drives the marker.
func (s *ReconcilerService) markFundsMoved(ctx context.Context, orderID string) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.ledger.backoff(ctx, attempt); err != nil {
				return fmt.Errorf("%w: %v", ErrUpstreamInconsistency, err)
			}
		}

		tx, err := s.store.GetTransaction(ctx, orderID)
		if err != nil {
			return fmt.Errorf("%w: reload transaction: %v", ErrUpstreamInconsistency, err)
		}
		if tx.FundsMoved {
			return nil
		}

		tx.FundsMoved = true
		err = s.store.UpdateTransaction(ctx, tx)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: write marker: %v", ErrUpstreamInconsistency, err)
		}

		logrus.WithField("order_id", orderID).Info("payment reconciled")
		return nil
	}
	return fmt.Errorf("%w: marker write exhausted retries for order %s", ErrUpstreamInconsistency, orderID)
}

// verifySignature checks the gateway HMAC: base64(HMAC-SHA256(secret,
// orderId + orderAmount + referenceId + txStatus + paymentMode + txMsg +
// txTime)).
func (s *ReconcilerService) verifySignature(ev *WebhookEvent) bool {
	return hmac.Equal([]byte(Signature(s.secret, ev)), []byte(ev.Signature))
}

// Signature computes the webhook signature for an event. Exposed for
// tests and for operators replaying events.
func Signature(secret string, ev *WebhookEvent) string {
	payload := ev.OrderID + ev.OrderAmount.String() + ev.ReferenceID +
		ev.TxStatus + ev.PaymentMode + ev.TxMsg + ev.TxTime
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
