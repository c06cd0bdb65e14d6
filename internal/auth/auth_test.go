package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/ajo/internal/models"
	"github.com/mmynk/ajo/internal/storage/memory"
)

const secret = "test-secret-0123456789"

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager(secret, time.Hour)
	user := models.NewUser("ada@example.com", "Ada", "")

	token, expires, err := m.Generate(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Identity())
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, "Ada", claims.DisplayName)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestJWTExpiryFollowsClock(t *testing.T) {
	m := NewJWTManager(secret, time.Hour)
	issued := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return issued }

	token, expires, err := m.Generate(models.NewUser("ada@example.com", "Ada", ""))
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Hour), expires)

	m.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = m.Validate(token)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager(secret, time.Hour)
	user := models.NewUser("ada@example.com", "Ada", "")

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewJWTManager("another-secret-0123456", time.Hour).Generate(user)
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, _, err := NewJWTManager(secret, -time.Minute).Generate(user)
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: user.ID}}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(memory.New()).WithCost(bcrypt.MinCost)

	_, err := a.Register(ctx, "ada@example.com", "Ada", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	user, err := a.Register(ctx, "ada@example.com", "Ada", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err = a.Register(ctx, "ada@example.com", "Ada Again", "correct horse")
	assert.ErrorIs(t, err, ErrEmailExists)

	got, err := a.Authenticate(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = a.Authenticate(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, err = a.Authenticate(ctx, "  ADA@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterValidatesProfile(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(memory.New()).WithCost(bcrypt.MinCost)

	_, err := a.Register(ctx, "not-an-email", "Ada", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = a.Register(ctx, "ada@example.com", "   ", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidProfile)

	long := strings.Repeat("é", MaxDisplayNameLength+1)
	_, err = a.Register(ctx, "ada@example.com", long, "correct horse")
	assert.ErrorIs(t, err, ErrInvalidProfile)

	user, err := a.Register(ctx, " Ada@Example.com", strings.Repeat("é", MaxDisplayNameLength), "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
}
