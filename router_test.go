package authclient_test

import (
	"net/http"
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardMiddleware_Allowed(t *testing.T) {
	guard, _ := loggedInGuard(t, authclient.RoleDoctor, time.Now().Add(time.Hour))
	ctx := newMockContext(http.MethodGet)

	var seen *authclient.Identity
	handler := authclient.GuardMiddleware(guard, authclient.RouteFor(authclient.SectionPatients))(func(c router.Context) error {
		seen, _ = authclient.IdentityFromContext(c.Context())
		return nil
	})

	require.NoError(t, handler(ctx))
	require.NotNil(t, seen)
	assert.Equal(t, authclient.RoleDoctor, seen.Role)
	assert.False(t, ctx.sent)
	assert.Empty(t, ctx.Header("Location"))
}

func TestGuardMiddleware_Redirects(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		role     authclient.UserRole
		login    bool
		redirect string
		status   int
	}{
		{"anonymous GET", http.MethodGet, authclient.RoleAdmin, false, authclient.DefaultLoginRoute, http.StatusFound},
		{"anonymous POST", http.MethodPost, authclient.RoleAdmin, false, authclient.DefaultLoginRoute, http.StatusSeeOther},
		{"wrong role", http.MethodGet, authclient.RolePatient, true, authclient.DefaultDefaultRoute, http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var guard *authclient.RouteGuard
			if tt.login {
				guard, _ = loggedInGuard(t, tt.role, time.Now().Add(time.Hour))
			} else {
				session, _ := newTestSession(t, nil, tt.role, time.Now().Add(time.Hour))
				guard = authclient.NewRouteGuard(session, nil).WithLogger(nopLogger{})
			}

			ctx := newMockContext(tt.method)

			called := false
			handler := authclient.GuardMiddleware(guard, authclient.RouteFor(authclient.SectionUsers))(func(router.Context) error {
				called = true
				return nil
			})

			require.NoError(t, handler(ctx))
			assert.False(t, called)
			assert.True(t, ctx.sent)
			assert.Equal(t, tt.status, ctx.status)
			assert.Equal(t, tt.redirect, ctx.Header("Location"))
			ctx.AssertExpectations(t)
		})
	}
}
