package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vaidashi/garment-order-tracker/internal/database"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db          *database.Database
	logger      logger.Logger
	users       *UserRepository
	products    *ProductRepository
	orders      *OrderRepository
	tracking    *TrackingRepository
	outbox      *OutboxRepository
	deadLetters *DeadLetterRepository
}

// NewPostgresStore wires the per-table repositories
func NewPostgresStore(db *database.Database, logger logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:          db,
		logger:      logger,
		users:       NewUserRepository(logger),
		products:    NewProductRepository(logger),
		orders:      NewOrderRepository(logger),
		tracking:    NewTrackingRepository(logger),
		outbox:      NewOutboxRepository(db, logger),
		deadLetters: NewDeadLetterRepository(db, logger),
	}
}

// Outbox returns the outbox repository used by the processor
func (s *PostgresStore) Outbox() *OutboxRepository {
	return s.outbox
}

// DeadLetters returns the dead letter repository
func (s *PostgresStore) DeadLetters() *DeadLetterRepository {
	return s.deadLetters
}

// WithTx runs fn in a read-committed transaction. Row locks taken through the
// ...ForUpdate reads serialize competing writers on the same product or order.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := s.db.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrDatabase, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error("Failed to roll back transaction", "error", rbErr)
			}
		}
	}()

	if err = fn(&pgTx{store: s, tx: sqlTx}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", ErrDatabase, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, s.db.DB, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetByEmail(ctx, s.db.DB, email)
}

func (s *PostgresStore) ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	return s.users.List(ctx, s.db.DB, filter)
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.products.GetByID(ctx, s.db.DB, id)
}

func (s *PostgresStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	return s.products.List(ctx, s.db.DB, filter)
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, s.db.DB, id)
}

func (s *PostgresStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	return s.orders.List(ctx, s.db.DB, filter)
}

func (s *PostgresStore) ListTrackingEvents(ctx context.Context, orderID string) ([]*models.TrackingEvent, error) {
	return s.tracking.List(ctx, s.db.DB, orderID)
}

// pgTx binds the repositories to one *sqlx.Tx
type pgTx struct {
	store *PostgresStore
	tx    *sqlx.Tx
}

func (t *pgTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	return t.store.users.GetByID(ctx, t.tx, id)
}

func (t *pgTx) CreateUser(ctx context.Context, user *models.User) error {
	return t.store.users.Create(ctx, t.tx, user)
}

func (t *pgTx) UpdateUser(ctx context.Context, user *models.User) error {
	return t.store.users.Update(ctx, t.tx, user)
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, id string) (*models.Product, error) {
	return t.store.products.GetByIDForUpdate(ctx, t.tx, id)
}

func (t *pgTx) CreateProduct(ctx context.Context, product *models.Product) error {
	return t.store.products.Create(ctx, t.tx, product)
}

func (t *pgTx) UpdateProduct(ctx context.Context, product *models.Product) error {
	return t.store.products.Update(ctx, t.tx, product)
}

func (t *pgTx) SetProductQuantity(ctx context.Context, id string, quantity int) error {
	return t.store.products.SetQuantity(ctx, t.tx, id, quantity)
}

func (t *pgTx) DeleteProduct(ctx context.Context, id string) error {
	return t.store.products.Delete(ctx, t.tx, id)
}

func (t *pgTx) CountActiveOrdersForProduct(ctx context.Context, productID string) (int, error) {
	return t.store.orders.CountActiveForProduct(ctx, t.tx, productID)
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return t.store.orders.GetByIDForUpdate(ctx, t.tx, id)
}

func (t *pgTx) CreateOrder(ctx context.Context, order *models.Order) error {
	return t.store.orders.Create(ctx, t.tx, order)
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, order *models.Order) error {
	return t.store.orders.UpdateStatus(ctx, t.tx, order)
}

func (t *pgTx) LastTrackingEvent(ctx context.Context, orderID string) (*models.TrackingEvent, error) {
	return t.store.tracking.Last(ctx, t.tx, orderID)
}

func (t *pgTx) AppendTrackingEvent(ctx context.Context, event *models.TrackingEvent) error {
	return t.store.tracking.Append(ctx, t.tx, event)
}

func (t *pgTx) CreateOutboxMessage(ctx context.Context, message *models.OutboxMessage) error {
	return t.store.outbox.CreateInTx(ctx, t.tx, message)
}

var (
	_ Store           = (*PostgresStore)(nil)
	_ OutboxStore     = (*OutboxRepository)(nil)
	_ DeadLetterStore = (*DeadLetterRepository)(nil)
)
