package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/vaidashi/garment-order-tracker/internal/auth"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// UserService handles accounts, sessions and admin user management
type UserService struct {
	store  repository.Store
	tokens *auth.TokenManager
	logger logger.Logger
}

// NewUserService creates a new UserService
func NewUserService(store repository.Store, tokens *auth.TokenManager, logger logger.Logger) *UserService {
	return &UserService{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// RegisterInput is a self-service signup
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
	Phone    string
	PhotoURL string
	Address  string
}

// LoginResult is a signed session token and the account it belongs to
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// ProfileUpdate changes the caller's own profile fields that are set
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	PhotoURL *string
	Address  *string
}

// UserQuery narrows the admin user listing
type UserQuery struct {
	Role   models.Role
	Status models.AccountStatus
	Page   Page
}

// Register creates a pending buyer or manager account
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleBuyer
	}
	if in.Role != models.RoleBuyer && in.Role != models.RoleManager {
		return nil, apperrors.NewInvalidInputError("role must be buyer or manager")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewInvalidInputError("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperrors.NewInvalidInputError("a valid email is required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to secure password").WithCause(err)
	}

	user := models.NewUser(in.Name, in.Email, hash, in.Role)
	user.Phone = models.StringPtr(strings.TrimSpace(in.Phone))
	user.PhotoURL = models.StringPtr(strings.TrimSpace(in.PhotoURL))
	user.Address = models.StringPtr(strings.TrimSpace(in.Address))

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflictError("an account with this email already exists")
		}
		return nil, translate(err, "user")
	}

	s.logger.Info("User registered", "userID", user.ID, "role", user.Role)
	return user, nil
}

// Login checks credentials and issues a session token. Pending accounts may
// sign in; suspended ones may not.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := apperrors.NewUnauthenticatedError("invalid email or password")

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid
		}
		return nil, translate(err, "user")
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.Error("Failed to check password", "userID", user.ID, "error", err)
		return nil, invalid
	}
	if !ok {
		return nil, invalid
	}

	if user.Status == models.AccountStatusSuspended {
		return nil, apperrors.NewAccountSuspendedError(user.ID, deref(user.SuspendReason))
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token").WithCause(err)
	}

	s.logger.Info("User logged in", "userID", user.ID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a bearer token to the current state of its user
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claimed, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.NewUnauthenticatedError("invalid or expired token")
	}

	user, err := s.store.GetUser(ctx, claimed.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticatedError("account no longer exists")
		}
		return nil, translate(err, "user")
	}

	if user.Status == models.AccountStatusSuspended {
		return nil, apperrors.NewAccountSuspendedError(user.ID, deref(user.SuspendReason))
	}
	return user, nil
}

// GetProfile returns the caller's account
func (s *UserService) GetProfile(ctx context.Context, p auth.Principal) (*models.User, error) {
	user, err := s.store.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

// UpdateProfile changes the caller's own profile
func (s *UserService) UpdateProfile(ctx context.Context, p auth.Principal, in ProfileUpdate) (*models.User, error) {
	return s.mutate(ctx, p.UserID, func(user *models.User) error {
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperrors.NewInvalidInputError("name cannot be empty")
			}
			user.Name = name
		}
		if in.Phone != nil {
			user.Phone = models.StringPtr(strings.TrimSpace(*in.Phone))
		}
		if in.PhotoURL != nil {
			user.PhotoURL = models.StringPtr(strings.TrimSpace(*in.PhotoURL))
		}
		if in.Address != nil {
			user.Address = models.StringPtr(strings.TrimSpace(*in.Address))
		}
		return nil
	})
}

// ListUsers lists accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, p auth.Principal, q UserQuery) ([]*models.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.NewUnauthorizedError("admin access required")
	}

	users, err := s.store.ListUsers(ctx, repository.UserFilter{
		Role:   q.Role,
		Status: q.Status,
		Limit:  q.Page.Limit,
		Offset: q.Page.Offset,
	})
	if err != nil {
		return nil, translate(err, "users")
	}
	return users, nil
}

// SetStatus changes an account status. Suspension requires a reason, which
// is cleared by any other status. Admin only.
func (s *UserService) SetStatus(ctx context.Context, p auth.Principal, userID string, status models.AccountStatus, reason string) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.NewUnauthorizedError("admin access required")
	}
	if !status.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown account status %q", status))
	}
	if p.UserID == userID {
		return nil, apperrors.NewInvalidInputError("admins cannot change their own status")
	}

	reason = strings.TrimSpace(reason)
	if status == models.AccountStatusSuspended && reason == "" {
		return nil, apperrors.NewInvalidInputError("a reason is required to suspend an account")
	}

	user, err := s.mutate(ctx, userID, func(user *models.User) error {
		user.Status = status
		if status == models.AccountStatusSuspended {
			user.SuspendReason = &reason
		} else {
			user.SuspendReason = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User status changed", "userID", userID, "status", status, "actorID", p.UserID)
	return user, nil
}

// SetRole changes an account role. Admin only.
func (s *UserService) SetRole(ctx context.Context, p auth.Principal, userID string, role models.Role) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, apperrors.NewUnauthorizedError("admin access required")
	}
	if !role.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown role %q", role))
	}
	if p.UserID == userID {
		return nil, apperrors.NewInvalidInputError("admins cannot change their own role")
	}

	user, err := s.mutate(ctx, userID, func(user *models.User) error {
		user.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User role changed", "userID", userID, "role", role, "actorID", p.UserID)
	return user, nil
}

// EnsureAdmin creates an approved admin with the given credentials unless
// an account with that email already exists
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.logger.Warn("Bootstrap admin email belongs to a non-admin account", "userID", existing.ID)
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return translate(err, "user")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.NewUser(name, email, hash, models.RoleAdmin)
	admin.Status = models.AccountStatusApproved

	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.CreateUser(ctx, admin)
	}); err != nil {
		return translate(err, "user")
	}

	s.logger.Info("Bootstrap admin created", "userID", admin.ID)
	return nil
}

func (s *UserService) mutate(ctx context.Context, userID string, fn func(user *models.User) error) (*models.User, error) {
	var user *models.User

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user", userID)
			}
			return err
		}

		if err := fn(user); err != nil {
			return err
		}

		user.UpdatedAt = models.GetCurrentTime()
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
