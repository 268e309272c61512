package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

func newOrder(t *testing.T, store *repository.MemoryStore) *models.Order {
	t.Helper()
	p := models.NewProduct("usr-m", "Hoodie", "", models.CategoryHoodie, decimal.NewFromInt(30), 10, 1)
	o := models.NewOrder("usr-b", p, 1, models.ShippingInfo{}, models.PaymentMethodBank)
	require.NoError(t, store.WithTx(context.Background(), func(tx repository.Tx) error {
		if err := tx.CreateProduct(context.Background(), p); err != nil {
			return err
		}
		return tx.CreateOrder(context.Background(), o)
	}))
	return o
}

func TestAppendKeepsTimestampsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	order := newOrder(t, store)

	log := NewLog(store, logger.NewNopLogger())
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return frozen }

	stages := []models.TrackingStage{models.StageOrderPlaced, models.StageApproved, models.StageCutting}
	for _, stage := range stages {
		require.NoError(t, store.WithTx(ctx, func(tx repository.Tx) error {
			_, err := log.Append(ctx, tx, order.ID, stage, "", "")
			return err
		}))
	}

	// a clock that jumped backwards
	log.now = func() time.Time { return frozen.Add(-time.Hour) }
	require.NoError(t, store.WithTx(ctx, func(tx repository.Tx) error {
		_, err := log.Append(ctx, tx, order.ID, models.StageSewing, "line 3", "Floor B")
		return err
	}))

	events, err := log.List(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)

	for i := 1; i < len(events); i++ {
		assert.True(t, events[i].CreatedAt.After(events[i-1].CreatedAt), "event %d", i)
	}
	assert.Equal(t, models.StageSewing, events[3].Stage)
	require.NotNil(t, events[3].Note)
	assert.Equal(t, "line 3", *events[3].Note)
	assert.Equal(t, "Floor B", *events[3].Location)
	assert.Nil(t, events[0].Note)
}

func TestAppendRolledBackIsInvisible(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	order := newOrder(t, store)
	log := NewLog(store, logger.NewNopLogger())

	_ = store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := log.Append(ctx, tx, order.ID, models.StageApproved, "", ""); err != nil {
			return err
		}
		return assert.AnError
	})

	events, err := log.List(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListUnknownOrderIsEmpty(t *testing.T) {
	log := NewLog(repository.NewMemoryStore(), logger.NewNopLogger())

	events, err := log.List(context.Background(), "ord-missing")
	require.NoError(t, err)
	assert.Empty(t, events)
}
