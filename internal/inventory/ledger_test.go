package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

func setup(t *testing.T, available, minOrder int) (*repository.MemoryStore, *Ledger, string) {
	t.Helper()
	store := repository.NewMemoryStore()
	p := models.NewProduct("usr-m", "Cargo Pant", "", models.CategoryPant, decimal.NewFromInt(20), available, minOrder)
	require.NoError(t, store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.CreateProduct(context.Background(), p)
	}))
	return store, NewLedger(logger.NewNopLogger()), p.ID
}

func available(t *testing.T, store *repository.MemoryStore, id string) int {
	t.Helper()
	p, err := store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.AvailableQuantity
}

func TestReserveDecrements(t *testing.T) {
	ctx := context.Background()
	store, ledger, id := setup(t, 5, 2)

	err := store.WithTx(ctx, func(tx repository.Tx) error {
		before, err := ledger.Reserve(ctx, tx, id, 3)
		if err != nil {
			return err
		}
		assert.Equal(t, 5, before.AvailableQuantity)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, available(t, store, id))
}

func TestReserveRejections(t *testing.T) {
	ctx := context.Background()
	store, ledger, id := setup(t, 5, 2)

	cases := []struct {
		name string
		qty  int
		kind error
	}{
		{"below minimum", 1, apperrors.ErrBelowMinimumOrder},
		{"above available", 6, apperrors.ErrInsufficientStock},
		{"zero", 0, apperrors.ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.WithTx(ctx, func(tx repository.Tx) error {
				_, err := ledger.Reserve(ctx, tx, id, tc.qty)
				return err
			})
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, 5, available(t, store, id))
		})
	}
}

func TestReserveExactlyAvailable(t *testing.T) {
	ctx := context.Background()
	store, ledger, id := setup(t, 4, 1)

	require.NoError(t, store.WithTx(ctx, func(tx repository.Tx) error {
		_, err := ledger.Reserve(ctx, tx, id, 4)
		return err
	}))
	assert.Equal(t, 0, available(t, store, id))
}

func TestReserveUnknownProduct(t *testing.T) {
	ctx := context.Background()
	store, ledger, _ := setup(t, 4, 1)

	err := store.WithTx(ctx, func(tx repository.Tx) error {
		_, err := ledger.Reserve(ctx, tx, "prd-missing", 1)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRestoreAfterReserve(t *testing.T) {
	ctx := context.Background()
	store, ledger, id := setup(t, 5, 2)

	require.NoError(t, store.WithTx(ctx, func(tx repository.Tx) error {
		_, err := ledger.Reserve(ctx, tx, id, 3)
		return err
	}))
	require.NoError(t, store.WithTx(ctx, func(tx repository.Tx) error {
		return ledger.Restore(ctx, tx, id, 3)
	}))
	assert.Equal(t, 5, available(t, store, id))
}

func TestAdjustAndSet(t *testing.T) {
	ctx := context.Background()
	store, ledger, id := setup(t, 5, 1)

	require.NoError(t, store.WithTx(ctx, func(tx repository.Tx) error {
		before, after, err := ledger.Adjust(ctx, tx, id, 10)
		assert.Equal(t, 5, before)
		assert.Equal(t, 15, after)
		return err
	}))

	err := store.WithTx(ctx, func(tx repository.Tx) error {
		_, _, err := ledger.Adjust(ctx, tx, id, -16)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	require.NoError(t, store.WithTx(ctx, func(tx repository.Tx) error {
		before, err := ledger.Set(ctx, tx, id, 2)
		assert.Equal(t, 15, before)
		return err
	}))
	assert.Equal(t, 2, available(t, store, id))

	err = store.WithTx(ctx, func(tx repository.Tx) error {
		_, err := ledger.Set(ctx, tx, id, -1)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
