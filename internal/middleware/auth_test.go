package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/ajo/internal/auth"
	"github.com/mmynk/ajo/internal/models"
)

type ping struct{}

func tokenFor(t *testing.T, m *auth.JWTManager, user *models.User) string {
	t.Helper()
	token, _, err := m.Generate(user)
	require.NoError(t, err)
	return token
}

// capture returns a UnaryFunc recording the identity it was called with.
func capture(seen *string) connect.UnaryFunc {
	return func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		*seen = GetUserID(ctx)
		return connect.NewResponse(&ping{}), nil
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "bearer abc"} {
		_, ok := bearerToken(h)
		assert.False(t, ok, "header %q", h)
	}
}

func TestRequireAuth(t *testing.T) {
	m := auth.NewJWTManager("middleware-secret-01234", time.Hour)
	user := models.NewUser("ada@example.com", "Ada", "")

	var seen string
	handler := RequireAuth(m)(capture(&seen))

	req := connect.NewRequest(&ping{})
	_, err := handler(context.Background(), req)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req.Header().Set("Authorization", "Bearer forged")
	_, err = handler(context.Background(), req)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req.Header().Set("Authorization", "Bearer "+tokenFor(t, m, user))
	_, err = handler(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, user.ID, seen)
}

func TestOptionalAuth(t *testing.T) {
	m := auth.NewJWTManager("middleware-secret-01234", time.Hour)
	user := models.NewUser("ada@example.com", "Ada", "")

	var seen string
	handler := OptionalAuth(m)(capture(&seen))

	req := connect.NewRequest(&ping{})
	_, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, seen)

	req.Header().Set("Authorization", "Bearer forged")
	_, err = handler(context.Background(), req)
	require.NoError(t, err, "invalid tokens fall back to anonymous")
	assert.Empty(t, seen)

	req.Header().Set("Authorization", "Bearer "+tokenFor(t, m, user))
	_, err = handler(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, user.ID, seen)
}

func TestLoggingInterceptorSeesIdentity(t *testing.T) {
	m := auth.NewJWTManager("middleware-secret-01234", time.Hour)
	user := models.NewUser("ada@example.com", "Ada", "")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var seen string
	handler := RequireAuth(m)(LoggingInterceptor(logger)(capture(&seen)))

	req := connect.NewRequest(&ping{})
	req.Header().Set("Authorization", "Bearer "+tokenFor(t, m, user))
	_, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "RPC ok")
	assert.Contains(t, buf.String(), "user_id="+user.ID)

	buf.Reset()
	failing := LoggingInterceptor(logger)(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, assert.AnError)
	})
	_, err = failing(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "code=not_found")
}
