package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milorg-admin/apperr"
)

func newTestSession(api *API) *Session {
	return NewSession(api, SessionConfig{Retry: fastRetry, LogoutDelay: time.Millisecond})
}

func teardown(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Teardown(ctx))
}

func TestSessionInitWithoutCookieMakesNoCall(t *testing.T) {
	srv := newStubServer(t)
	s := newTestSession(srv.api(t))

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, Unauthenticated, s.State())
	assert.Zero(t, srv.verifyCalls.Load())
}

func TestSessionInitRestoresCookie(t *testing.T) {
	srv := newStubServer(t)
	api := srv.api(t)
	setCookie(t, api, "token")
	s := newTestSession(api)

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, "gestor@example.com", s.User().Email)
}

func TestSessionInitExpiredCookieIsSilent(t *testing.T) {
	srv := newStubServer(t)
	api := srv.api(t)
	setCookie(t, api, "expired")
	s := newTestSession(api)

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, Unauthenticated, s.State())
	assert.Nil(t, s.User())
	assert.False(t, api.HasSessionCookie())
}

func TestSessionResolveCoalesces(t *testing.T) {
	srv := newStubServer(t, blockingVerify)
	api := srv.api(t)
	setCookie(t, api, "token")
	s := newTestSession(api)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Resolve(context.Background())
		}(i)
	}

	<-srv.verifyEntered
	assert.Equal(t, Verifying, s.State())
	time.Sleep(20 * time.Millisecond)
	close(srv.verifyRelease)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, int32(1), srv.verifyCalls.Load())
}

func TestSessionLogoutIsIdempotent(t *testing.T) {
	srv := newStubServer(t)
	api := srv.api(t)
	s := newTestSession(api)

	_, err := s.Login(context.Background(), Credentials{Email: "gestor@example.com", Password: "secret"})
	require.NoError(t, err)
	require.True(t, api.HasSessionCookie())

	s.Logout(context.Background())
	assert.Equal(t, Unauthenticated, s.State())
	assert.Nil(t, s.User())
	assert.False(t, api.HasSessionCookie())
	teardown(t, s)
	assert.Equal(t, int32(1), srv.logoutCalls.Load())

	s.Logout(context.Background())
	teardown(t, s)
	assert.Equal(t, int32(1), srv.logoutCalls.Load(), "second logout makes no server call")
	assert.Equal(t, Unauthenticated, s.State())
}

func TestSessionLogoutSurvivesServerFailure(t *testing.T) {
	srv := newStubServer(t, func(s *stubServer) { s.logoutStatus = http.StatusServiceUnavailable })
	s := newTestSession(srv.api(t))

	_, err := s.Login(context.Background(), Credentials{Email: "gestor@example.com", Password: "secret"})
	require.NoError(t, err)

	s.Logout(context.Background())
	teardown(t, s)
	assert.Equal(t, Unauthenticated, s.State())
	assert.Equal(t, int32(1), srv.logoutCalls.Load())
}

func TestSessionDropsSupersededVerification(t *testing.T) {
	srv := newStubServer(t, blockingVerify)
	api := srv.api(t)
	setCookie(t, api, "token")
	s := newTestSession(api)

	result := make(chan error, 1)
	go func() {
		_, err := s.Verify(context.Background())
		result <- err
	}()
	<-srv.verifyEntered

	s.Logout(context.Background())
	close(srv.verifyRelease)

	assert.ErrorIs(t, <-result, ErrSuperseded)
	assert.Equal(t, Unauthenticated, s.State(), "late verification must not log the user back in")
	assert.Nil(t, s.User())
	teardown(t, s)
}

func TestSessionVerifyNetworkFailureKeepsCookie(t *testing.T) {
	api, err := NewAPI("http://127.0.0.1:1", nil)
	require.NoError(t, err)
	setCookie(t, api, "token")
	s := newTestSession(api)

	_, err = s.Verify(context.Background())
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	assert.Equal(t, Unauthenticated, s.State())
	assert.True(t, api.HasSessionCookie())
	assert.Error(t, s.Init(context.Background()))
}
