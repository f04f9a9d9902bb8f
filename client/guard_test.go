package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/permissions"
)

func newTestGuard(t *testing.T, s *Session) *Guard {
	t.Helper()
	routes, err := NewRouteTable(DefaultRoutes())
	require.NoError(t, err)
	resolver, err := permissions.NewResolver(permissions.SystemManage, permissions.DefaultGlobalSet)
	require.NoError(t, err)
	return NewGuard(s, routes, resolver, zap.NewNop())
}

func TestGuardNoCookieRedirectsWithoutNetwork(t *testing.T) {
	srv := newStubServer(t)
	g := newTestGuard(t, newTestSession(srv.api(t)))

	d := g.Navigate(context.Background(), "/admin/users")
	assert.False(t, d.Allow)
	assert.Equal(t, PublicLanding, d.Redirect)
	assert.NoError(t, d.Err)
	assert.Zero(t, srv.verifyCalls.Load())

	assert.True(t, g.Navigate(context.Background(), "/login").Allow)
	assert.True(t, g.Navigate(context.Background(), "/unknown/page").Allow)
}

func TestGuardVerifiesCookieThenCaches(t *testing.T) {
	srv := newStubServer(t)
	api := srv.api(t)
	setCookie(t, api, "token")
	s := newTestSession(api)
	g := newTestGuard(t, s)

	assert.True(t, g.Navigate(context.Background(), "/admin/users").Allow)
	assert.Equal(t, Authenticated, s.State())
	assert.True(t, g.Navigate(context.Background(), "/admin/users/7").Allow)
	assert.Equal(t, int32(1), srv.verifyCalls.Load())
}

func TestGuardAuthenticatedPublicRouteGoesToAdmin(t *testing.T) {
	srv := newStubServer(t)
	s := newTestSession(srv.api(t))
	_, err := s.Login(context.Background(), Credentials{Email: "gestor@example.com", Password: "secret"})
	require.NoError(t, err)
	g := newTestGuard(t, s)

	d := g.Navigate(context.Background(), "/login")
	assert.False(t, d.Allow)
	assert.Equal(t, AdminLanding, d.Redirect)
}

func TestGuardPermissionDenialIsFatal(t *testing.T) {
	srv := newStubServer(t)
	s := newTestSession(srv.api(t))
	_, err := s.Login(context.Background(), Credentials{Email: "gestor@example.com", Password: "secret"})
	require.NoError(t, err)
	g := newTestGuard(t, s)

	d := g.Navigate(context.Background(), "/admin/roles")
	assert.False(t, d.Allow)
	assert.Equal(t, PublicLanding, d.Redirect)
	assert.ErrorIs(t, d.Err, apperr.ErrForbidden)
	assert.False(t, apperr.Retryable(d.Err))
	assert.Equal(t, Authenticated, s.State(), "denial does not end the session")
}

func TestGuardPermissionsPageNeedsRoleManagement(t *testing.T) {
	srv := newStubServer(t)
	s := newTestSession(srv.api(t))
	_, err := s.Login(context.Background(), Credentials{Email: "gestor@example.com", Password: "secret"})
	require.NoError(t, err)
	g := newTestGuard(t, s)

	d := g.Navigate(context.Background(), "/admin/permissions")
	assert.False(t, d.Allow)
	assert.Equal(t, PublicLanding, d.Redirect)
	assert.ErrorIs(t, d.Err, apperr.ErrForbidden)

	assert.True(t, g.Navigate(context.Background(), "/admin").Allow)
}

func TestGuardExpiredCookieClearsSession(t *testing.T) {
	srv := newStubServer(t)
	api := srv.api(t)
	setCookie(t, api, "expired")
	s := newTestSession(api)
	g := newTestGuard(t, s)

	d := g.Navigate(context.Background(), "/admin")
	assert.Equal(t, PublicLanding, d.Redirect)
	assert.ErrorIs(t, d.Err, apperr.ErrTokenExpired)
	assert.False(t, api.HasSessionCookie())

	d = g.Navigate(context.Background(), "/admin")
	assert.NoError(t, d.Err)
	assert.Equal(t, int32(1), srv.verifyCalls.Load(), "no second round trip once the cookie is gone")
}

func TestGuardAfterLogout(t *testing.T) {
	srv := newStubServer(t)
	s := newTestSession(srv.api(t))
	_, err := s.Login(context.Background(), Credentials{Email: "gestor@example.com", Password: "secret"})
	require.NoError(t, err)
	g := newTestGuard(t, s)

	s.Logout(context.Background())
	d := g.Navigate(context.Background(), "/admin/users")
	assert.Equal(t, PublicLanding, d.Redirect)
	assert.Zero(t, srv.verifyCalls.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Teardown(ctx))
}
