package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vaidashi/garment-order-tracker/internal/auth"
	"github.com/vaidashi/garment-order-tracker/internal/inventory"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// ProductService handles product administration
type ProductService struct {
	store  repository.Store
	ledger *inventory.Ledger
	logger logger.Logger
}

// NewProductService creates a new ProductService
func NewProductService(store repository.Store, ledger *inventory.Ledger, logger logger.Logger) *ProductService {
	return &ProductService{
		store:  store,
		ledger: ledger,
		logger: logger,
	}
}

// ProductInput is the full set of editable product fields
type ProductInput struct {
	Name                 string
	Description          string
	Category             models.Category
	Price                decimal.Decimal
	AvailableQuantity    int
	MinimumOrderQuantity int
	Featured             bool
	ShowOnHome           bool
	Images               []string
}

func (in ProductInput) validate() error {
	var problems []string

	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !in.Category.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", in.Category))
	}
	if !in.Price.IsPositive() {
		problems = append(problems, "price must be positive")
	}
	if in.AvailableQuantity < 0 {
		problems = append(problems, "available quantity cannot be negative")
	}
	if in.MinimumOrderQuantity < 1 {
		problems = append(problems, "minimum order quantity must be at least 1")
	}

	if len(problems) > 0 {
		return apperrors.NewInvalidInputError(strings.Join(problems, "; ")).WithContext("problems", problems)
	}
	return nil
}

// ProductUpdate changes the fields that are set. Stock is changed through AdjustInventory.
type ProductUpdate struct {
	Name                 *string
	Description          *string
	Category             *models.Category
	Price                *decimal.Decimal
	MinimumOrderQuantity *int
	Featured             *bool
	ShowOnHome           *bool
	Images               []string
}

// InventoryInput sets stock either relative (Delta) or absolute (AvailableQuantity)
type InventoryInput struct {
	Delta             *int
	AvailableQuantity *int
	Reason            string
}

// ProductQuery narrows the product listing
type ProductQuery struct {
	OwnerID      string
	Category     models.Category
	FeaturedOnly bool
	HomeOnly     bool
	Page         Page
}

// CreateProduct creates a product owned by the calling manager
func (s *ProductService) CreateProduct(ctx context.Context, p auth.Principal, in ProductInput) (*models.Product, error) {
	if p.Role != models.RoleManager {
		return nil, apperrors.NewUnauthorizedError("only managers can create products")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := models.NewProduct(p.UserID, in.Name, in.Description, in.Category, in.Price, in.AvailableQuantity, in.MinimumOrderQuantity)
	product.Featured = in.Featured
	product.ShowOnHome = in.ShowOnHome
	product.Images = pq.StringArray(cleanImages(in.Images))

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, translate(err, "product")
	}

	s.logger.Info("Product created",
		"productID", product.ID,
		"ownerID", product.OwnerID,
		"slug", product.Slug)

	return product, nil
}

// UpdateProduct edits a product. Owners and admins only.
func (s *ProductService) UpdateProduct(ctx context.Context, p auth.Principal, productID string, in ProductUpdate) (*models.Product, error) {
	var product *models.Product

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		product, err = s.lockOwned(ctx, tx, p, productID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			product.Rename(*in.Name)
		}
		if in.Description != nil {
			product.Description = *in.Description
		}
		if in.Category != nil {
			product.Category = *in.Category
		}
		if in.Price != nil {
			product.Price = *in.Price
		}
		if in.MinimumOrderQuantity != nil {
			product.MinimumOrderQuantity = *in.MinimumOrderQuantity
		}
		if in.Featured != nil {
			product.Featured = *in.Featured
		}
		if in.ShowOnHome != nil {
			product.ShowOnHome = *in.ShowOnHome
		}
		if in.Images != nil {
			product.Images = pq.StringArray(cleanImages(in.Images))
		}

		check := ProductInput{
			Name:                 product.Name,
			Category:             product.Category,
			Price:                product.Price,
			AvailableQuantity:    product.AvailableQuantity,
			MinimumOrderQuantity: product.MinimumOrderQuantity,
		}
		if err := check.validate(); err != nil {
			return err
		}

		product.UpdatedAt = models.GetCurrentTime()
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		return nil, translate(err, "product")
	}

	s.logger.Info("Product updated", "productID", productID, "actorID", p.UserID)
	return product, nil
}

// DeleteProduct hard deletes a product. It is refused while non-terminal
// orders reference it, because they may still need their stock restored.
func (s *ProductService) DeleteProduct(ctx context.Context, p auth.Principal, productID string) error {
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := s.lockOwned(ctx, tx, p, productID); err != nil {
			return err
		}

		active, err := tx.CountActiveOrdersForProduct(ctx, productID)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperrors.NewConflictError(fmt.Sprintf("product has %d open orders", active)).
				WithContext("product_id", productID).
				WithContext("active_orders", active)
		}

		return tx.DeleteProduct(ctx, productID)
	})
	if err != nil {
		return translate(err, "product")
	}

	s.logger.Info("Product deleted", "productID", productID, "actorID", p.UserID)
	return nil
}

// AdjustInventory changes the available quantity of a product under its row lock
func (s *ProductService) AdjustInventory(ctx context.Context, p auth.Principal, productID string, in InventoryInput) (*models.Product, error) {
	if (in.Delta == nil) == (in.AvailableQuantity == nil) {
		return nil, apperrors.NewInvalidInputError("exactly one of delta or availableQuantity is required")
	}

	var product *models.Product

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		if product, err = s.lockOwned(ctx, tx, p, productID); err != nil {
			return err
		}

		var before, after int
		if in.Delta != nil {
			before, after, err = s.ledger.Adjust(ctx, tx, productID, *in.Delta)
		} else {
			after = *in.AvailableQuantity
			before, err = s.ledger.Set(ctx, tx, productID, after)
		}
		if err != nil {
			return err
		}
		product.AvailableQuantity = after

		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			reason = "manual adjustment"
		}

		msg, err := models.NewInventoryAdjustedEvent(models.InventoryAdjustment{
			ProductID: productID,
			Before:    before,
			After:     after,
			Reason:    reason,
		})
		if err != nil {
			return fmt.Errorf("failed to create outbox message: %w", err)
		}
		return tx.CreateOutboxMessage(ctx, msg)
	})
	if err != nil {
		return nil, translate(err, "product")
	}

	s.logger.Info("Inventory adjusted",
		"productID", productID,
		"available", product.AvailableQuantity,
		"actorID", p.UserID)

	return product, nil
}

// GetProduct returns a product by id
func (s *ProductService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("product", productID)
		}
		return nil, translate(err, "product")
	}
	return product, nil
}

// ListProducts returns products newest first
func (s *ProductService) ListProducts(ctx context.Context, q ProductQuery) ([]*models.Product, error) {
	if q.Category != "" && !q.Category.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown category %q", q.Category))
	}

	products, err := s.store.ListProducts(ctx, repository.ProductFilter{
		OwnerID:      q.OwnerID,
		Category:     q.Category,
		FeaturedOnly: q.FeaturedOnly,
		HomeOnly:     q.HomeOnly,
		Limit:        q.Page.Limit,
		Offset:       q.Page.Offset,
	})
	if err != nil {
		return nil, translate(err, "products")
	}
	return products, nil
}

func (s *ProductService) lockOwned(ctx context.Context, tx repository.Tx, p auth.Principal, productID string) (*models.Product, error) {
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("product", productID)
		}
		return nil, err
	}

	if !p.IsAdmin() && !(p.Role == models.RoleManager && product.OwnerID == p.UserID) {
		return nil, apperrors.NewUnauthorizedError("only the owning manager or an admin may change this product").
			WithContext("product_id", productID)
	}
	return product, nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}
