package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

const userColumns = `id, name, email, password_hash, role, status, suspend_reason,
	photo_url, phone, address, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	logger logger.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(logger logger.Logger) *UserRepository {
	return &UserRepository{logger: logger}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, q sqlx.ExtContext, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :password_hash, :role, :status, :suspend_reason,
			:photo_url, :phone, :address, :created_at, :updated_at)
	`

	if _, err := sqlx.NamedExecContext(ctx, q, query, user); err != nil {
		return classify(r.logger, "create user", err, "userID", user.ID)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.User, error) {
	var user models.User

	err := sqlx.GetContext(ctx, q, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, classify(r.logger, "get user by ID", err, "userID", id)
	}
	return &user, nil
}

// GetByEmail retrieves a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*models.User, error) {
	var user models.User

	err := sqlx.GetContext(ctx, q, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email))
	if err != nil {
		return nil, classify(r.logger, "get user by email", err)
	}
	return &user, nil
}

// Update writes the mutable user fields
func (r *UserRepository) Update(ctx context.Context, q sqlx.ExtContext, user *models.User) error {
	query := `
		UPDATE users
		SET name = :name, role = :role, status = :status, suspend_reason = :suspend_reason,
			photo_url = :photo_url, phone = :phone, address = :address, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, q, query, user)
	if err != nil {
		return classify(r.logger, "update user", err, "userID", user.ID)
	}
	return requireAffected(result)
}

// List returns users matching the filter, newest first
func (r *UserRepository) List(ctx context.Context, q sqlx.ExtContext, filter UserFilter) ([]*models.User, error) {
	var w whereBuilder

	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	query := `SELECT ` + userColumns + ` FROM users` + w.sql() + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args := append(w.args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))

	users := []*models.User{}
	if err := sqlx.SelectContext(ctx, q, &users, q.Rebind(query), args...); err != nil {
		return nil, classify(r.logger, "list users", err)
	}
	return users, nil
}
