package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/models"
)

func TestRenderOrders(t *testing.T) {
	var buf bytes.Buffer

	err := renderOrders(&buf, []*models.Order{{
		ID:            "ord-1",
		BuyerID:       "usr-b",
		ManagerID:     "usr-m",
		ProductID:     "prd-1",
		Quantity:      20,
		TotalAmount:   decimal.RequireFromString("250"),
		PaymentMethod: models.PaymentMethodCashOnDelivery,
		Status:        models.OrderStatusApproved,
		CreatedAt:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ord-1")
	assert.Contains(t, out, "250.00")
	assert.Contains(t, out, "approved")
	assert.Contains(t, out, "2026-03-01 09:30:00")
}

func TestRenderTracking(t *testing.T) {
	var buf bytes.Buffer

	err := renderTracking(&buf, []*models.TrackingEvent{
		{OrderID: "ord-1", Stage: models.StageOrderPlaced, CreatedAt: time.Now()},
		{OrderID: "ord-1", Stage: models.StageSewing, Location: models.StringPtr("Line 3"), CreatedAt: time.Now()},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "order_placed")
	assert.Contains(t, out, "sewing")
	assert.Contains(t, out, "Line 3")
}

func TestRenderOutboxCounts(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderOutboxCounts(&buf, map[models.OutboxStatus]int{
		models.OutboxStatusPending:   3,
		models.OutboxStatusCompleted: 12,
	}))

	out := buf.String()
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "12")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("completed")), bytes.Index(buf.Bytes(), []byte("pending")))
}

func TestRenderDeadLetters(t *testing.T) {
	var buf bytes.Buffer

	letter := models.NewDeadLetterMessage(&models.OutboxMessage{
		ID:          4,
		AggregateID: "ord-1",
		EventType:   models.EventOrderCreated,
	}, "broker down", "max retries exceeded")
	letter.ID = 9

	require.NoError(t, renderDeadLetters(&buf, []*models.DeadLetterMessage{letter}))
	assert.Contains(t, buf.String(), "order_created")
	assert.Contains(t, buf.String(), "max retries exceeded")
}
