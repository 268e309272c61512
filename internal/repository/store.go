package repository

import (
	"context"
	"errors"

	"github.com/vaidashi/garment-order-tracker/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDatabase  = errors.New("database error")
	ErrDuplicate = errors.New("duplicate record")
)

// DefaultListLimit caps listings that do not ask for a limit
const DefaultListLimit = 100

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	BuyerID         string
	ManagerID       string
	ProductID       string
	Statuses        []models.OrderStatus
	ExcludeStatuses []models.OrderStatus
	ApprovedOnly    bool
	Limit           int
	Offset          int
}

// ProductFilter narrows product listings
type ProductFilter struct {
	OwnerID      string
	Category     models.Category
	FeaturedOnly bool
	HomeOnly     bool
	Limit        int
	Offset       int
}

// UserFilter narrows user listings
type UserFilter struct {
	Role   models.Role
	Status models.AccountStatus
	Limit  int
	Offset int
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// Tx is the set of reads and writes available inside one atomic unit.
// The ...ForUpdate reads hold the row until the transaction ends.
type Tx interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error

	GetProductForUpdate(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	SetProductQuantity(ctx context.Context, id string, quantity int) error
	DeleteProduct(ctx context.Context, id string) error
	CountActiveOrdersForProduct(ctx context.Context, productID string) (int, error)

	GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrderStatus(ctx context.Context, order *models.Order) error

	LastTrackingEvent(ctx context.Context, orderID string) (*models.TrackingEvent, error)
	AppendTrackingEvent(ctx context.Context, event *models.TrackingEvent) error

	CreateOutboxMessage(ctx context.Context, message *models.OutboxMessage) error
}

// Store is the persistence boundary used by the services
type Store interface {
	// WithTx runs fn atomically. Nothing fn wrote is visible unless it returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error)

	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error)

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error)

	ListTrackingEvents(ctx context.Context, orderID string) ([]*models.TrackingEvent, error)
}

// OutboxStore is what the outbox processor needs from persistence
type OutboxStore interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	GetMessage(ctx context.Context, id int64) (*models.OutboxMessage, error)
	MarkAsProcessing(ctx context.Context, id int64) error
	MarkAsCompleted(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64, errorMessage string) error
	ReleaseForRetry(ctx context.Context, id int64, errorMessage string) error
	CountByStatus(ctx context.Context) (map[models.OutboxStatus]int, error)
}

// DeadLetterStore is what the dead letter processor and admin endpoints need
type DeadLetterStore interface {
	Create(ctx context.Context, message *models.DeadLetterMessage) error
	GetPendingMessages(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error)
	List(ctx context.Context, status models.DeadLetterStatus, limit, offset int) ([]*models.DeadLetterMessage, int, error)
	GetMessage(ctx context.Context, id int64) (*models.DeadLetterMessage, error)
	MarkAsRetrying(ctx context.Context, id int64) error
	MarkAsResolved(ctx context.Context, id int64) error
	MarkAsDiscarded(ctx context.Context, id int64, reason string) error
	ResetToRetry(ctx context.Context, id int64) error
}

// activeStatuses are the non-terminal order statuses
func activeStatuses() []models.OrderStatus {
	var out []models.OrderStatus
	for _, s := range models.OrderStatuses {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}
