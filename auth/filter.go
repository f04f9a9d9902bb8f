package auth

import (
	"context"
	"strings"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/permissions"
	"milorg-admin/response"
)

const identityAttribute = "identity"

// Verifier resolves a session token to a live identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Guard builds go-restful filters that authenticate requests and enforce
// route access levels.
type Guard struct {
	verifier   Verifier
	resolver   *permissions.Resolver
	cookies    *CookieStore
	translator response.Translator
	logger     *zap.Logger
}

func NewGuard(verifier Verifier, resolver *permissions.Resolver, cookies *CookieStore, tr response.Translator, logger *zap.Logger) *Guard {
	return &Guard{verifier: verifier, resolver: resolver, cookies: cookies, translator: tr, logger: logger}
}

// Authenticate rejects requests without a valid session. On any verification
// failure the session cookie is cleared before the error is written.
func (g *Guard) Authenticate() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		token, ok := ReadSessionToken(req.Request)
		if !ok {
			response.Error(req, resp, g.translator, apperr.ErrTokenMissing)
			return
		}

		identity, err := g.verifier.Verify(req.Request.Context(), token)
		if err != nil {
			g.cookies.ClearSessionCookie(resp.ResponseWriter)
			if apperr.KindOf(err) != apperr.KindAuthentication {
				g.logger.Error("Token verification failed", zap.Error(err), zap.String("path", req.Request.URL.Path))
			}
			response.Error(req, resp, g.translator, err)
			return
		}

		req.SetAttribute(identityAttribute, identity)
		chain.ProcessFilter(req, resp)
	}
}

// Require enforces an access level. It must run after Authenticate. An empty
// access level admits any authenticated user.
func (g *Guard) Require(accessLevel ...permissions.Slug) restful.FilterFunction {
	for _, s := range accessLevel {
		if !permissions.Known(s) {
			panic("auth: route declares unregistered permission " + string(s))
		}
	}
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		identity, ok := IdentityFrom(req)
		if !ok {
			response.Error(req, resp, g.translator, apperr.ErrTokenMissing)
			return
		}
		if !g.resolver.HasPermission(identity.Slugs(), accessLevel) {
			g.logger.Info("Access denied",
				zap.Uint("user_id", identity.ID),
				zap.String("path", req.Request.URL.Path),
				zap.String("required", strings.Join(permissions.Strings(accessLevel), ",")))
			response.Error(req, resp, g.translator, apperr.ErrForbidden)
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(req *restful.Request) (*Identity, bool) {
	identity, ok := req.Attribute(identityAttribute).(*Identity)
	return identity, ok && identity != nil
}
