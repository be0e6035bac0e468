package authsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/session"
	testutil "github.com/trezcool/uninotes/tests"
)

func TestDummy_SignIn(t *testing.T) {
	conf := testutil.NewConfig()
	a := NewDummy(nil, conf)
	ctx := context.Background()

	identity, err := a.SignUp(ctx, " Jane@Example.com", "secret#1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", identity.Email)

	_, err = a.SignUp(ctx, "jane@example.com", "other#2")
	assert.Equal(t, session.ErrEmailTaken, err)

	_, _, err = a.SignIn(ctx, "jane@example.com", "wrong")
	assert.Equal(t, session.ErrInvalidCredentials, err)
	_, _, err = a.SignIn(ctx, "nobody@example.com", "secret#1")
	assert.Equal(t, session.ErrInvalidCredentials, err)

	got, tokens, err := a.SignIn(ctx, "JANE@example.com", "secret#1")
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	claims, err := ParseToken(tokens.AccessToken, conf.Auth.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, identity, claims.Identity())
	assert.Equal(t, RoleAuthenticated, claims.Audience)
	assert.Equal(t, conf.AppName, claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(conf.Auth.JWTExpirationDelta), tokens.ExpiresAt, 2*time.Second)

	_, err = ParseToken(tokens.AccessToken, "another-secret-with-at-least-32-chars")
	assert.Equal(t, session.ErrNoSession, err)

	got, err = a.GetUser(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	require.NoError(t, a.SignOut(ctx, tokens.AccessToken))
	_, err = a.GetUser(ctx, tokens.AccessToken)
	assert.Equal(t, session.ErrNoSession, err)
	assert.Equal(t, session.ErrNoSession, a.UpdatePassword(ctx, tokens.AccessToken, "new#pwd1"))
}

func TestDummy_ExpiredToken(t *testing.T) {
	conf := testutil.NewConfig()
	a := NewDummy(nil, conf)
	ctx := context.Background()
	require.NoError(t, a.AddUser("u1", "jane@example.com", "secret#1"))

	core.NowFunc = func() time.Time { return time.Now().Add(-2 * conf.Auth.JWTExpirationDelta) }
	_, tokens, err := a.SignIn(ctx, "jane@example.com", "secret#1")
	core.NowFunc = time.Now
	require.NoError(t, err)

	_, err = a.GetUser(ctx, tokens.AccessToken)
	assert.Equal(t, session.ErrNoSession, err)
}

func TestDummy_Recovery(t *testing.T) {
	conf := testutil.NewConfig()
	a := NewDummy(nil, conf)
	ctx := context.Background()
	require.NoError(t, a.AddUser("u1", "jane@example.com", "secret#1"))

	require.NoError(t, a.SendRecoveryCode(ctx, "nobody@example.com"))
	_, ok := a.RecoveryCode("nobody@example.com")
	assert.False(t, ok)

	require.NoError(t, a.SendRecoveryCode(ctx, "jane@example.com"))
	code, ok := a.RecoveryCode("jane@example.com")
	require.True(t, ok)
	assert.Regexp(t, `^\d{6}$`, code)

	t.Run("expired", func(t *testing.T) {
		core.NowFunc = func() time.Time { return time.Now().Add(RecoveryCodeTTL + time.Second) }
		defer func() { core.NowFunc = time.Now }()
		_, err := a.VerifyRecoveryCode(ctx, "jane@example.com", code)
		assert.Equal(t, session.ErrInvalidCode, err)
	})

	// a new code replaces the expired one
	require.NoError(t, a.SendRecoveryCode(ctx, "jane@example.com"))
	code, _ = a.RecoveryCode("jane@example.com")

	tokens, err := a.VerifyRecoveryCode(ctx, "jane@example.com", code)
	require.NoError(t, err)
	require.NoError(t, a.UpdatePassword(ctx, tokens.AccessToken, "new#pwd1"))

	_, _, err = a.SignIn(ctx, "jane@example.com", "secret#1")
	assert.Equal(t, session.ErrInvalidCredentials, err)
	_, _, err = a.SignIn(ctx, "jane@example.com", "new#pwd1")
	assert.NoError(t, err)
}
