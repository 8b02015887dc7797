package services

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindhaven/backend/internal/models"
	"github.com/mindhaven/backend/internal/store"
)

func TestInitiatePayment(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewPaymentService(mem, "https://pay.example.com", "INR")

	order, err := svc.InitiatePayment(ctx, "U1", "C1", decimal.NewFromInt(300))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderID, "order_"))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "INR", order.Currency)
	assert.Contains(t, order.PaymentLink, order.OrderID)
	assert.NotEmpty(t, order.QRImage)

	tx, err := mem.GetTransaction(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "U1", tx.UserID)
	assert.Equal(t, "C1", tx.CounselorID)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(300)))
	assert.False(t, tx.FundsMoved)
}

func TestInitiatePayment_Validation(t *testing.T) {
	mem := store.NewMemory()
	svc := NewPaymentService(mem, "https://pay.example.com", "INR")

	_, err := svc.InitiatePayment(context.Background(), "", "", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.InitiatePayment(context.Background(), "U1", "", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewPaymentService(mem, "https://pay.example.com", "INR")

	order, err := svc.InitiatePayment(ctx, "U1", "", decimal.NewFromInt(50))
	require.NoError(t, err)

	tx, err := svc.GetOrder(ctx, "U1", order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, tx.OrderID)

	_, err = svc.GetOrder(ctx, "U2", order.OrderID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.GetOrder(ctx, "U1", "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
