package client

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/permissions"
)

// Decision is the outcome of a navigation. When Allow is false the caller
// goes to Redirect; Err carries why, if it was an error.
type Decision struct {
	Allow    bool
	Redirect string
	Err      error
}

func allow() Decision { return Decision{Allow: true} }

func redirect(to string, err error) Decision { return Decision{Redirect: to, Err: err} }

// Guard decides front-end navigations from the session state.
type Guard struct {
	session  *Session
	routes   *RouteTable
	resolver *permissions.Resolver
	logger   *zap.Logger
}

func NewGuard(session *Session, routes *RouteTable, resolver *permissions.Resolver, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{session: session, routes: routes, resolver: resolver, logger: logger.Named("guard")}
}

// Navigate decides whether path may be shown.
//
// Public routes send an authenticated session to the admin landing. Protected
// routes without a cookie redirect to the public landing with no network call;
// with a cookie the session is verified first. A permission denial is fatal:
// Err is apperr.ErrForbidden and the caller is sent to the public landing.
func (g *Guard) Navigate(ctx context.Context, path string) Decision {
	r, ok := g.routes.match(path)
	if !ok {
		return allow()
	}

	d, err := g.decide(ctx, r)
	if errors.Is(err, ErrSuperseded) {
		// decide again on the state left by the login or logout
		d, err = g.decide(ctx, r)
	}
	if err != nil {
		return redirect(PublicLanding, err)
	}
	return d
}

func (g *Guard) decide(ctx context.Context, r route) (Decision, error) {
	state := g.session.State()

	if !r.requiresAuth {
		if state == Authenticated {
			return redirect(AdminLanding, nil), nil
		}
		return allow(), nil
	}

	if state != Authenticated && !g.session.HasCookie() {
		return redirect(PublicLanding, nil), nil
	}
	user, err := g.session.Resolve(ctx)
	if errors.Is(err, ErrSuperseded) {
		return Decision{}, err
	}
	if err != nil {
		g.logger.Debug("verification failed", zap.String("route", r.path), zap.Error(err))
		return redirect(PublicLanding, err), nil
	}

	if !g.resolver.HasPermission(user.Slugs(), r.accessLevel) {
		g.logger.Info("navigation denied",
			zap.String("route", r.path),
			zap.Uint("user_id", user.ID),
			zap.Strings("required", permissions.Strings(r.accessLevel)),
		)
		return redirect(PublicLanding, apperr.ErrForbidden), nil
	}
	return allow(), nil
}
