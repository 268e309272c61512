package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/auth"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

func newUserService(t *testing.T) (*UserService, *repository.MemoryStore, auth.Principal) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewUserService(store, auth.NewTokenManager("secret", time.Hour), logger.NewNopLogger())

	require.NoError(t, svc.EnsureAdmin(context.Background(), "Root", "root@example.com", "rootpassword"))
	admin, err := store.GetUserByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.Equal(t, models.AccountStatusApproved, admin.Status)

	return svc, store, auth.PrincipalOf(admin)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newUserService(t)

	user, err := svc.Register(ctx, RegisterInput{Name: "Nila", Email: "Nila@Example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.Equal(t, models.AccountStatusPending, user.Status)
	assert.NotEqual(t, "longenough", user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Name: "Nila 2", Email: "nila@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	res, err := svc.Login(ctx, "nila@example.com", "longenough")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	authed, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Login(ctx, "nila@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	_, err = svc.Login(ctx, "nobody@example.com", "longenough")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Name: "A", Email: "a@example.com", Password: "longenough", Role: models.RoleAdmin},
		{Name: "", Email: "a@example.com", Password: "longenough"},
		{Name: "A", Email: "not-an-email", Password: "longenough"},
		{Name: "A", Email: "a@example.com", Password: "short"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, in)
	}
}

func TestSuspensionBlocksSessions(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newUserService(t)

	user, err := svc.Register(ctx, RegisterInput{Name: "Omar", Email: "omar@example.com", Password: "longenough", Role: models.RoleManager})
	require.NoError(t, err)

	res, err := svc.Login(ctx, "omar@example.com", "longenough")
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, admin, user.ID, models.AccountStatusSuspended, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "suspension needs a reason")

	suspended, err := svc.SetStatus(ctx, admin, user.ID, models.AccountStatusSuspended, "chargebacks")
	require.NoError(t, err)
	require.NotNil(t, suspended.SuspendReason)

	_, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperrors.ErrAccountSuspended, "existing tokens stop working")
	_, err = svc.Login(ctx, "omar@example.com", "longenough")
	assert.ErrorIs(t, err, apperrors.ErrAccountSuspended)

	approved, err := svc.SetStatus(ctx, admin, user.ID, models.AccountStatusApproved, "")
	require.NoError(t, err)
	assert.Nil(t, approved.SuspendReason)
}

func TestAdminOnlyOperations(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newUserService(t)

	user, err := svc.Register(ctx, RegisterInput{Name: "Lia", Email: "lia@example.com", Password: "longenough"})
	require.NoError(t, err)
	p := auth.PrincipalOf(user)

	_, err = svc.ListUsers(ctx, p, UserQuery{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = svc.SetRole(ctx, p, user.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.SetRole(ctx, admin, admin.UserID, models.RoleBuyer)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	promoted, err := svc.SetRole(ctx, admin, user.ID, models.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, promoted.Role)

	managers, err := svc.ListUsers(ctx, admin, UserQuery{Role: models.RoleManager})
	require.NoError(t, err)
	require.Len(t, managers, 1)
	assert.Equal(t, user.ID, managers[0].ID)

	_, err = svc.SetStatus(ctx, admin, "usr-missing", models.AccountStatusApproved, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfileUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newUserService(t)

	user, err := svc.Register(ctx, RegisterInput{Name: "Tara", Email: "tara@example.com", Password: "longenough"})
	require.NoError(t, err)
	p := auth.PrincipalOf(user)

	phone := " 555-0101 "
	updated, err := svc.UpdateProfile(ctx, p, ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "555-0101", *updated.Phone)

	empty := " "
	_, err = svc.UpdateProfile(ctx, p, ProfileUpdate{Name: &empty})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	profile, err := svc.GetProfile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Tara", profile.Name)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, store, _ := newUserService(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "Root", "root@example.com", "different"))

	admins, err := store.ListUsers(context.Background(), repository.UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}
