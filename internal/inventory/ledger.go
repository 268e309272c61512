// Package inventory keeps product stock consistent with the orders placed against it.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// Ledger adjusts Product.AvailableQuantity. Every method runs inside the
// caller's transaction on a row-locked product, so the check and the write
// are one atomic unit. The ledger performs no deduplication: callers invoke
// Restore exactly once per qualifying transition.
type Ledger struct {
	logger logger.Logger
}

// NewLedger creates a ledger
func NewLedger(log logger.Logger) *Ledger {
	return &Ledger{logger: log}
}

// Reserve decrements stock by qty after checking the minimum order quantity
// and the available quantity. It returns the product as it was before the
// decrement, so the caller can snapshot price and owner.
func (l *Ledger) Reserve(ctx context.Context, tx repository.Tx, productID string, qty int) (*models.Product, error) {
	if qty <= 0 {
		return nil, apperrors.NewInvalidInputError("quantity must be positive")
	}

	product, err := l.lock(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	if qty < product.MinimumOrderQuantity {
		return nil, apperrors.NewBelowMinimumOrderError(productID, qty, product.MinimumOrderQuantity)
	}
	if qty > product.AvailableQuantity {
		return nil, apperrors.NewInsufficientStockError(productID, qty, product.AvailableQuantity)
	}

	remaining := product.AvailableQuantity - qty
	if err := tx.SetProductQuantity(ctx, productID, remaining); err != nil {
		return nil, fmt.Errorf("failed to reserve stock for product %s: %w", productID, err)
	}

	l.logger.Debug("Stock reserved",
		"productID", productID,
		"quantity", qty,
		"remaining", remaining)

	return product, nil
}

// Restore increments stock by qty
func (l *Ledger) Restore(ctx context.Context, tx repository.Tx, productID string, qty int) error {
	if qty <= 0 {
		return apperrors.NewInvalidInputError("quantity must be positive")
	}

	product, err := l.lock(ctx, tx, productID)
	if err != nil {
		return err
	}

	restored := product.AvailableQuantity + qty
	if err := tx.SetProductQuantity(ctx, productID, restored); err != nil {
		return fmt.Errorf("failed to restore stock for product %s: %w", productID, err)
	}

	l.logger.Debug("Stock restored",
		"productID", productID,
		"quantity", qty,
		"available", restored)

	return nil
}

// Set replaces the available quantity and returns the value it had before
func (l *Ledger) Set(ctx context.Context, tx repository.Tx, productID string, quantity int) (int, error) {
	if quantity < 0 {
		return 0, apperrors.NewInvalidInputError("available quantity cannot be negative")
	}

	product, err := l.lock(ctx, tx, productID)
	if err != nil {
		return 0, err
	}

	if err := tx.SetProductQuantity(ctx, productID, quantity); err != nil {
		return 0, fmt.Errorf("failed to set stock for product %s: %w", productID, err)
	}

	return product.AvailableQuantity, nil
}

// Adjust applies delta to the available quantity and returns the values
// before and after. The result may not go below zero.
func (l *Ledger) Adjust(ctx context.Context, tx repository.Tx, productID string, delta int) (before, after int, err error) {
	product, err := l.lock(ctx, tx, productID)
	if err != nil {
		return 0, 0, err
	}

	before = product.AvailableQuantity
	after = before + delta
	if after < 0 {
		return 0, 0, apperrors.NewInsufficientStockError(productID, -delta, before)
	}

	if err := tx.SetProductQuantity(ctx, productID, after); err != nil {
		return 0, 0, fmt.Errorf("failed to adjust stock for product %s: %w", productID, err)
	}

	return before, after, nil
}

func (l *Ledger) lock(ctx context.Context, tx repository.Tx, productID string) (*models.Product, error) {
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", productID)).
				WithContext("product_id", productID)
		}
		return nil, fmt.Errorf("failed to lock product %s: %w", productID, err)
	}
	return product, nil
}
