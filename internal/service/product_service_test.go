package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestCreateProductValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)

	_, err := f.products.CreateProduct(ctx, f.buyer, ProductInput{Name: "X", Category: models.CategoryShirt, Price: decimal.NewFromInt(1), MinimumOrderQuantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.products.CreateProduct(ctx, f.manager, ProductInput{
		Name:                 "Free Shirt",
		Category:             models.CategoryShirt,
		Price:                decimal.Zero,
		MinimumOrderQuantity: 0,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Context["problems"], 2)

	assert.Equal(t, "oxford-shirt", f.product.Slug)
	assert.Equal(t, f.manager.UserID, f.product.OwnerID)
}

func TestUpdateProductOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)

	name := "Oxford Shirt Slim"
	_, err := f.products.UpdateProduct(ctx, f.otherManager, f.product.ID, ProductUpdate{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	updated, err := f.products.UpdateProduct(ctx, f.manager, f.product.ID, ProductUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "oxford-shirt-slim", updated.Slug)

	price := decimal.NewFromInt(-1)
	_, err = f.products.UpdateProduct(ctx, f.admin, f.product.ID, ProductUpdate{Price: &price})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	featured := true
	updated, err = f.products.UpdateProduct(ctx, f.admin, f.product.ID, ProductUpdate{Featured: &featured})
	require.NoError(t, err)
	assert.True(t, updated.Featured)
}

func TestAdjustInventory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)

	_, err := f.products.AdjustInventory(ctx, f.manager, f.product.ID, InventoryInput{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	p, err := f.products.AdjustInventory(ctx, f.manager, f.product.ID, InventoryInput{Delta: intPtr(7), Reason: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 12, p.AvailableQuantity)

	_, err = f.products.AdjustInventory(ctx, f.manager, f.product.ID, InventoryInput{Delta: intPtr(-13)})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	p, err = f.products.AdjustInventory(ctx, f.admin, f.product.ID, InventoryInput{AvailableQuantity: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, p.AvailableQuantity)
	assert.Equal(t, 3, f.available(t))

	_, err = f.products.AdjustInventory(ctx, f.otherManager, f.product.ID, InventoryInput{Delta: intPtr(1)})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	messages, err := f.store.Outbox().All(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.EventProductInventoryAdjusted, messages[0].EventType)

	var envelope struct {
		Data models.InventoryAdjustment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(messages[0].Payload, &envelope))
	assert.Equal(t, 5, envelope.Data.Before)
	assert.Equal(t, 12, envelope.Data.After)
	assert.Equal(t, "restock", envelope.Data.Reason)
}

func TestDeleteProductRefusedWithOpenOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)
	order := f.place(t, 1)

	err := f.products.DeleteProduct(ctx, f.manager, f.product.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.orders.Advance(ctx, f.manager, order.ID, AdvanceInput{Status: models.OrderStatusDelivered})
	require.NoError(t, err)

	assert.ErrorIs(t, f.products.DeleteProduct(ctx, f.otherManager, f.product.ID), apperrors.ErrUnauthorized)
	require.NoError(t, f.products.DeleteProduct(ctx, f.manager, f.product.ID))

	_, err = f.products.GetProduct(ctx, f.product.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// the delivered order outlives its product
	_, err = f.orders.GetOrder(ctx, f.buyer, order.ID)
	assert.NoError(t, err)
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)

	_, err := f.products.CreateProduct(ctx, f.otherManager, ProductInput{
		Name:                 "Rain Jacket",
		Category:             models.CategoryJacket,
		Price:                decimal.NewFromInt(40),
		AvailableQuantity:    2,
		MinimumOrderQuantity: 1,
		Featured:             true,
	})
	require.NoError(t, err)

	all, err := f.products.ListProducts(ctx, ProductQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	jackets, err := f.products.ListProducts(ctx, ProductQuery{Category: models.CategoryJacket})
	require.NoError(t, err)
	require.Len(t, jackets, 1)
	assert.Equal(t, "rain-jacket", jackets[0].Slug)

	featured, err := f.products.ListProducts(ctx, ProductQuery{FeaturedOnly: true})
	require.NoError(t, err)
	assert.Len(t, featured, 1)

	mine, err := f.products.ListProducts(ctx, ProductQuery{OwnerID: f.manager.UserID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.product.ID, mine[0].ID)

	_, err = f.products.ListProducts(ctx, ProductQuery{Category: "capes"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
