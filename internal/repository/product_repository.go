package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

const productColumns = `id, owner_id, name, slug, description, category, price, available_quantity,
	minimum_order_quantity, featured, show_on_home, images, created_at, updated_at`

// ProductRepository handles database operations for products
type ProductRepository struct {
	logger logger.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(logger logger.Logger) *ProductRepository {
	return &ProductRepository{logger: logger}
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, q sqlx.ExtContext, product *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (:id, :owner_id, :name, :slug, :description, :category, :price, :available_quantity,
			:minimum_order_quantity, :featured, :show_on_home, :images, :created_at, :updated_at)
	`

	if _, err := sqlx.NamedExecContext(ctx, q, query, product); err != nil {
		return classify(r.logger, "create product", err, "productID", product.ID)
	}
	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Product, error) {
	return r.get(ctx, q, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a product and locks its row for the rest of the transaction
func (r *ProductRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Product, error) {
	return r.get(ctx, tx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepository) get(ctx context.Context, q sqlx.ExtContext, query, id string) (*models.Product, error) {
	var product models.Product

	if err := sqlx.GetContext(ctx, q, &product, query, id); err != nil {
		return nil, classify(r.logger, "get product by ID", err, "productID", id)
	}
	return &product, nil
}

// Update writes the editable product fields
func (r *ProductRepository) Update(ctx context.Context, q sqlx.ExtContext, product *models.Product) error {
	query := `
		UPDATE products
		SET name = :name, slug = :slug, description = :description, category = :category,
			price = :price, available_quantity = :available_quantity,
			minimum_order_quantity = :minimum_order_quantity, featured = :featured,
			show_on_home = :show_on_home, images = :images, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, q, query, product)
	if err != nil {
		return classify(r.logger, "update product", err, "productID", product.ID)
	}
	return requireAffected(result)
}

// SetQuantity overwrites the available quantity
func (r *ProductRepository) SetQuantity(ctx context.Context, q sqlx.ExtContext, id string, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products SET available_quantity = $1, updated_at = $2 WHERE id = $3`,
		quantity, models.GetCurrentTime(), id)
	if err != nil {
		return classify(r.logger, "set product quantity", err, "productID", id)
	}
	return requireAffected(result)
}

// Delete removes a product
func (r *ProductRepository) Delete(ctx context.Context, q sqlx.ExtContext, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return classify(r.logger, "delete product", err, "productID", id)
	}
	return requireAffected(result)
}

// List returns products matching the filter, newest first
func (r *ProductRepository) List(ctx context.Context, q sqlx.ExtContext, filter ProductFilter) ([]*models.Product, error) {
	var w whereBuilder

	if filter.OwnerID != "" {
		w.add("owner_id = ?", filter.OwnerID)
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.FeaturedOnly {
		w.add("featured = TRUE")
	}
	if filter.HomeOnly {
		w.add("show_on_home = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products` + w.sql() + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args := append(w.args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))

	products := []*models.Product{}
	if err := sqlx.SelectContext(ctx, q, &products, q.Rebind(query), args...); err != nil {
		return nil, classify(r.logger, "list products", err)
	}
	return products, nil
}
