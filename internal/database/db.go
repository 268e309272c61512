package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/vaidashi/garment-order-tracker/internal/config"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// Schema is applied idempotently at startup
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(64) PRIMARY KEY,
	name VARCHAR(200) NOT NULL,
	email VARCHAR(320) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'manager', 'buyer')),
	status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'approved', 'suspended')),
	suspend_reason TEXT,
	photo_url TEXT,
	phone VARCHAR(50),
	address TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status);

CREATE TABLE IF NOT EXISTS products (
	id VARCHAR(64) PRIMARY KEY,
	owner_id VARCHAR(64) NOT NULL REFERENCES users(id),
	name VARCHAR(200) NOT NULL,
	slug VARCHAR(220) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category VARCHAR(30) NOT NULL,
	price NUMERIC(12, 2) NOT NULL CHECK (price > 0),
	available_quantity INT NOT NULL CHECK (available_quantity >= 0),
	minimum_order_quantity INT NOT NULL CHECK (minimum_order_quantity >= 1),
	featured BOOLEAN NOT NULL DEFAULT FALSE,
	show_on_home BOOLEAN NOT NULL DEFAULT FALSE,
	images TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

CREATE TABLE IF NOT EXISTS orders (
	id VARCHAR(64) PRIMARY KEY,
	product_id VARCHAR(64) NOT NULL,
	buyer_id VARCHAR(64) NOT NULL REFERENCES users(id),
	manager_id VARCHAR(64) NOT NULL,
	quantity INT NOT NULL CHECK (quantity > 0),
	unit_price NUMERIC(12, 2) NOT NULL,
	total_amount NUMERIC(14, 2) NOT NULL,
	payment_method VARCHAR(30) NOT NULL,
	payment_reference TEXT,
	ship_street TEXT NOT NULL,
	ship_city VARCHAR(120) NOT NULL,
	ship_state VARCHAR(120) NOT NULL DEFAULT '',
	ship_zip VARCHAR(20) NOT NULL DEFAULT '',
	ship_country VARCHAR(120) NOT NULL,
	contact_name VARCHAR(200) NOT NULL,
	contact_phone VARCHAR(50) NOT NULL,
	contact_email VARCHAR(320) NOT NULL DEFAULT '',
	status VARCHAR(30) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	approved_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_manager_status ON orders(manager_id, status);
CREATE INDEX IF NOT EXISTS idx_orders_product_status ON orders(product_id, status);

CREATE TABLE IF NOT EXISTS tracking_events (
	id BIGSERIAL PRIMARY KEY,
	order_id VARCHAR(64) NOT NULL REFERENCES orders(id),
	status VARCHAR(30) NOT NULL,
	note TEXT,
	location TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tracking_order ON tracking_events(order_id, created_at, id);

CREATE TABLE IF NOT EXISTS outbox_messages (
	id BIGSERIAL PRIMARY KEY,
	aggregate_type VARCHAR(50) NOT NULL,
	aggregate_id VARCHAR(64) NOT NULL,
	event_type VARCHAR(50) NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at TIMESTAMPTZ,
	processing_attempts INT NOT NULL DEFAULT 0,
	last_error TEXT,
	status VARCHAR(20) NOT NULL DEFAULT 'pending'
);

CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status, id);
CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);

CREATE TABLE IF NOT EXISTS dead_letter_messages (
	id BIGSERIAL PRIMARY KEY,
	original_message_id BIGINT NOT NULL,
	aggregate_type VARCHAR(50) NOT NULL,
	aggregate_id VARCHAR(64) NOT NULL,
	event_type VARCHAR(50) NOT NULL,
	payload JSONB NOT NULL,
	error_message TEXT NOT NULL,
	failure_reason TEXT NOT NULL,
	retry_count INT NOT NULL DEFAULT 0,
	last_retry_at TIMESTAMPTZ,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_dead_letter_status ON dead_letter_messages(status, created_at);
`

// RunMigrations applies the schema
func (d *Database) RunMigrations(ctx context.Context) error {
	if _, err := d.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
