package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

const orderColumns = `id, product_id, buyer_id, manager_id, quantity, unit_price, total_amount,
	payment_method, payment_reference, ship_street, ship_city, ship_state, ship_zip, ship_country,
	contact_name, contact_phone, contact_email, status, created_at, approved_at, updated_at`

// OrderRepository handles database operations for orders
type OrderRepository struct {
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(logger logger.Logger) *OrderRepository {
	return &OrderRepository{logger: logger}
}

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, q sqlx.ExtContext, order *models.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :product_id, :buyer_id, :manager_id, :quantity, :unit_price, :total_amount,
			:payment_method, :payment_reference, :ship_street, :ship_city, :ship_state, :ship_zip,
			:ship_country, :contact_name, :contact_phone, :contact_email, :status, :created_at,
			:approved_at, :updated_at)
	`

	if _, err := sqlx.NamedExecContext(ctx, q, query, order); err != nil {
		return classify(r.logger, "create order", err, "orderID", order.ID)
	}
	return nil
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Order, error) {
	return r.get(ctx, q, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves an order and locks its row for the rest of the transaction
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Order, error) {
	return r.get(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) get(ctx context.Context, q sqlx.ExtContext, query, id string) (*models.Order, error) {
	var order models.Order

	if err := sqlx.GetContext(ctx, q, &order, query, id); err != nil {
		return nil, classify(r.logger, "get order by ID", err, "orderID", id)
	}
	return &order, nil
}

// UpdateStatus writes status, approved_at and updated_at. Quantity and amounts never change.
func (r *OrderRepository) UpdateStatus(ctx context.Context, q sqlx.ExtContext, order *models.Order) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders SET status = $1, approved_at = $2, updated_at = $3 WHERE id = $4`,
		order.Status, order.ApprovedAt, order.UpdatedAt, order.ID)
	if err != nil {
		return classify(r.logger, "update order status", err, "orderID", order.ID)
	}
	return requireAffected(result)
}

// CountActiveForProduct counts non-terminal orders that reference a product
func (r *OrderRepository) CountActiveForProduct(ctx context.Context, q sqlx.ExtContext, productID string) (int, error) {
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM orders WHERE product_id = ? AND status IN (?)`, productID, activeStatuses())
	if err != nil {
		return 0, classify(r.logger, "count active orders", err, "productID", productID)
	}

	var count int
	if err := sqlx.GetContext(ctx, q, &count, q.Rebind(query), args...); err != nil {
		return 0, classify(r.logger, "count active orders", err, "productID", productID)
	}
	return count, nil
}

// List returns orders matching the filter, newest first
func (r *OrderRepository) List(ctx context.Context, q sqlx.ExtContext, filter OrderFilter) ([]*models.Order, error) {
	var w whereBuilder

	if filter.BuyerID != "" {
		w.add("buyer_id = ?", filter.BuyerID)
	}
	if filter.ManagerID != "" {
		w.add("manager_id = ?", filter.ManagerID)
	}
	if filter.ProductID != "" {
		w.add("product_id = ?", filter.ProductID)
	}
	if filter.ApprovedOnly {
		w.add("approved_at IS NOT NULL")
	}
	if len(filter.Statuses) > 0 {
		if err := w.in("status", filter.Statuses); err != nil {
			return nil, classify(r.logger, "list orders", err)
		}
	}
	if len(filter.ExcludeStatuses) > 0 {
		if err := w.notIn("status", filter.ExcludeStatuses); err != nil {
			return nil, classify(r.logger, "list orders", err)
		}
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + w.sql() + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args := append(w.args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))

	orders := []*models.Order{}
	if err := sqlx.SelectContext(ctx, q, &orders, q.Rebind(query), args...); err != nil {
		return nil, classify(r.logger, "list orders", err)
	}
	return orders, nil
}
