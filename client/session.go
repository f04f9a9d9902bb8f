package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/auth"
)

// State of a client session.
type State int

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ErrSuperseded is returned to a verification whose result was dropped
// because the session changed (login or logout) while it was in flight.
var ErrSuperseded = errors.New("session changed during verification")

// DefaultLogoutDelay is how long Logout waits before returning.
const DefaultLogoutDelay = 100 * time.Millisecond

// SessionConfig holds the optional knobs of a Session.
type SessionConfig struct {
	Retry       RetryPolicy
	LogoutDelay time.Duration
	Logger      *zap.Logger
}

type verification struct {
	done chan struct{}
	user *auth.Identity
	err  error
}

// Session is the application-context object holding who is logged in. It is
// created once per front end and passed to whatever needs it.
type Session struct {
	api         *API
	retry       RetryPolicy
	logoutDelay time.Duration
	logger      *zap.Logger

	mu         sync.Mutex
	state      State
	user       *auth.Identity
	generation uint64
	inflight   *verification

	background sync.WaitGroup
}

func NewSession(api *API, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.LogoutDelay == 0 {
		cfg.LogoutDelay = DefaultLogoutDelay
	}
	return &Session{api: api, retry: cfg.Retry, logoutDelay: cfg.LogoutDelay, logger: cfg.Logger.Named("session")}
}

// Init restores a session from an existing cookie. Authentication failures
// leave the session logged out and are not returned.
func (s *Session) Init(ctx context.Context) error {
	if !s.api.HasSessionCookie() {
		return nil
	}
	_, err := s.Verify(ctx)
	if err == nil || apperr.KindOf(err) == apperr.KindAuthentication {
		return nil
	}
	return err
}

// Teardown waits for background logout calls to finish. Call it when the
// front end shuts down after its last Logout.
func (s *Session) Teardown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the cached identity, nil unless Authenticated.
func (s *Session) User() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// HasCookie reports whether a session cookie is stored.
func (s *Session) HasCookie() bool {
	return s.api.HasSessionCookie()
}

func (s *Session) Login(ctx context.Context, creds Credentials) (*auth.Identity, error) {
	user, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.generation++
	s.state = Authenticated
	s.user = user
	s.inflight = nil
	s.mu.Unlock()
	return user, nil
}

// Verify checks the stored cookie with the server. Concurrent callers share
// one round trip.
func (s *Session) Verify(ctx context.Context) (*auth.Identity, error) {
	s.mu.Lock()
	v := s.startVerificationLocked(ctx)
	s.mu.Unlock()
	return v.wait(ctx)
}

// Resolve returns the cached identity when authenticated and verifies the
// cookie otherwise.
func (s *Session) Resolve(ctx context.Context) (*auth.Identity, error) {
	s.mu.Lock()
	if s.state == Authenticated && s.user != nil {
		user := s.user
		s.mu.Unlock()
		return user, nil
	}
	v := s.startVerificationLocked(ctx)
	s.mu.Unlock()
	return v.wait(ctx)
}

func (s *Session) startVerificationLocked(ctx context.Context) *verification {
	if s.inflight != nil {
		return s.inflight
	}
	v := &verification{done: make(chan struct{})}
	s.inflight = v
	s.state = Verifying
	go s.runVerification(context.WithoutCancel(ctx), v, s.generation)
	return v
}

func (v *verification) wait(ctx context.Context) (*auth.Identity, error) {
	select {
	case <-v.done:
		return v.user, v.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) runVerification(ctx context.Context, v *verification, generation uint64) {
	user, err := Retry(ctx, s.retry, s.api.VerifyToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(v.done)
	if s.inflight == v {
		s.inflight = nil
	}

	if s.generation != generation {
		v.err = ErrSuperseded
		return
	}
	s.generation++
	if err != nil {
		s.state = Unauthenticated
		s.user = nil
		if apperr.KindOf(err) == apperr.KindAuthentication {
			s.api.ClearSessionCookie()
		}
		v.err = err
		return
	}
	s.state = Authenticated
	s.user = user
	v.user = user
}

// Logout clears local state, waits the logout delay and invalidates the
// server cookie in the background. Server failures are only logged. Calling
// it on a logged-out session makes no server call.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	active := s.state != Unauthenticated || s.user != nil || s.api.HasSessionCookie()
	s.generation++
	s.state = Unauthenticated
	s.user = nil
	s.inflight = nil
	s.api.ClearSessionCookie()
	s.mu.Unlock()

	if !active {
		return
	}

	timer := time.NewTimer(s.logoutDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
	case <-timer.C:
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		callCtx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if err := s.api.Logout(callCtx); err != nil {
			s.logger.Warn("server logout failed", zap.Error(err))
		}
	}()
}
