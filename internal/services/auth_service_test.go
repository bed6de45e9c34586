package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/pkg/jwt"
)

func TestEnsureAdminAndLogin(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tokens := jwt.NewManager("test-secret", time.Hour)
	svc := NewAuthService(repos.AdminUsers, tokens)

	require.NoError(t, svc.EnsureAdmin(ctx, "Ops@Example.com", "s3cret"))
	// Second call is a no-op.
	require.NoError(t, svc.EnsureAdmin(ctx, "ops@example.com", "other"))

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "ops@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resp.Role)

	claims, err := tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Email)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "ops@example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Error(t, svc.EnsureAdmin(ctx, "", "x"))
}
