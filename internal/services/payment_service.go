package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mindhaven/backend/internal/models"
	"github.com/mindhaven/backend/internal/store"
)

// PaymentService creates the pending transaction record a checkout
// starts from. The gateway reports back on it later through the webhook;
// the reconciler never creates records itself.
type PaymentService struct {
	store       store.Store
	checkoutURL string
	currency    string
}

func NewPaymentService(st store.Store, checkoutURL, currency string) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{store: st, checkoutURL: checkoutURL, currency: currency}
}

// PaymentOrder is returned to the client to drive the gateway checkout.
type PaymentOrder struct {
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	PaymentLink string          `json:"paymentLink"`
	QRImage     string          `json:"qrImage"` // base64 PNG of the payment link
}

// InitiatePayment records a PENDING transaction for the caller and
// returns the checkout link plus its QR rendering. counselorID is set
// when the payment is for a counseling session and drives the earning
// attribution at reconciliation time.
func (s *PaymentService) InitiatePayment(ctx context.Context, userID, counselorID string, amount decimal.Decimal) (*PaymentOrder, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	orderID := "order_" + uuid.NewString()
	tx := &models.Transaction{
		OrderID:     orderID,
		UserID:      userID,
		CounselorID: counselorID,
		Amount:      amount,
		Currency:    s.currency,
		Status:      models.OrderStatusPending,
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	link := fmt.Sprintf("%s/pay?order_id=%s&amount=%s",
		s.checkoutURL, url.QueryEscape(orderID), url.QueryEscape(amount.String()))

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     orderID,
		"user_id":      userID,
		"counselor_id": counselorID,
		"amount":       amount.String(),
	}).Info("payment initiated")

	return &PaymentOrder{
		OrderID:     orderID,
		Amount:      amount,
		Currency:    s.currency,
		Status:      tx.Status,
		PaymentLink: link,
		QRImage:     base64.StdEncoding.EncodeToString(png),
	}, nil
}

// GetOrder returns the transaction record for a caller's own order.
func (s *PaymentService) GetOrder(ctx context.Context, userID, orderID string) (*models.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, orderID)
	if err == store.ErrTransactionNotFound {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx.UserID != userID {
		return nil, ErrUnauthorized
	}
	return tx, nil
}
