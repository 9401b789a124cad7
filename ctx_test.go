package authclient_test

import (
	"context"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	_, ok := authclient.IdentityFromContext(ctx)
	assert.False(t, ok)
	_, ok = authclient.RoleFromContext(ctx)
	assert.False(t, ok)

	ctx = authclient.WithIdentityContext(ctx, nil)
	_, ok = authclient.IdentityFromContext(ctx)
	assert.False(t, ok)

	identity := &authclient.Identity{ID: "1", Username: "nurse", Role: authclient.RoleNurse}
	ctx = authclient.WithIdentityContext(ctx, identity)

	got, ok := authclient.IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, identity, got)

	role, ok := authclient.RoleFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, authclient.RoleNurse, role)
}
