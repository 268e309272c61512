package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/models"
)

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	user := models.NewUser("Mina", "mina@example.com", "", models.RoleManager)

	token, expires, err := tm.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	p, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, models.RoleManager, p.Role)
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	user := models.NewUser("Mina", "mina@example.com", "", models.RoleBuyer)

	other := NewTokenManager("other-secret", time.Hour)
	foreign, _, err := other.Issue(user)
	require.NoError(t, err)
	_, err = tm.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := NewTokenManager("test-secret", time.Minute)
	past.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := past.Issue(user)
	require.NoError(t, err)
	_, err = tm.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	claims := Claims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-1",
			Issuer:    "garment-order-tracker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	ok, err := CheckPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "usr-1", Role: models.RoleAdmin})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.True(t, p.IsAdmin())
}
