package controllers

import (
	"net/http"
	"strings"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/metrics"
	"milorg-admin/permissions"
	"milorg-admin/response"
	"milorg-admin/services"
)

type LoginResponse struct {
	User    *auth.Identity `json:"user"`
	Message string         `json:"message"`
}

type VerifyResponse struct {
	User *auth.Identity `json:"user"`
}

type AccessResponse struct {
	HasAccess bool `json:"hasAccess"`
}

// AuthController serves login, logout and session checks.
type AuthController struct {
	base
	authService services.AuthService
	guard       *auth.Guard
	cookies     *auth.CookieStore
	resolver    *permissions.Resolver
	loginFilter restful.FilterFunction
	metrics     *metrics.Metrics
}

type AuthControllerConfig struct {
	AuthService services.AuthService
	Guard       *auth.Guard
	Cookies     *auth.CookieStore
	Resolver    *permissions.Resolver
	// LoginFilter throttles login attempts; nil disables throttling.
	LoginFilter restful.FilterFunction
	Metrics     *metrics.Metrics
	Translator  response.Translator
	Logger      *zap.Logger
}

func NewAuthController(cfg AuthControllerConfig) *AuthController {
	return &AuthController{
		base:        base{translator: cfg.Translator, logger: cfg.Logger},
		authService: cfg.AuthService,
		guard:       cfg.Guard,
		cookies:     cfg.Cookies,
		resolver:    cfg.Resolver,
		loginFilter: cfg.LoginFilter,
		metrics:     cfg.Metrics,
	}
}

// RegisterRoutes sets up /api/auth on ws.
func (ctl *AuthController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/auth").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{tagAuth}

	login := ws.POST("/login").To(ctl.login).
		Doc("Authenticate with e-mail and password; sets the session cookie").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.LoginInput{}).
		Returns(http.StatusOK, "Logged in", LoginResponse{}).
		Returns(http.StatusBadRequest, "Missing fields", response.ErrorEnvelope{}).
		Returns(http.StatusUnauthorized, "Invalid credentials", response.ErrorEnvelope{}).
		Returns(http.StatusTooManyRequests, "Too many attempts", response.ErrorEnvelope{})
	if ctl.loginFilter != nil {
		login = login.Filter(ctl.loginFilter)
	}
	ws.Route(login)

	ws.Route(ws.POST("/logout").To(ctl.logout).
		Doc("Clear the session cookie").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Logged out", MessageResponse{}))

	ws.Route(ws.GET("/verify-token").Filter(ctl.guard.Authenticate()).To(ctl.verifyToken).
		Doc("Resolve the session token to the current user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Session is valid", VerifyResponse{}).
		Returns(http.StatusUnauthorized, "Missing, invalid or expired token", response.ErrorEnvelope{}))

	ws.Route(ws.GET("/check-access").Filter(ctl.guard.Authenticate()).To(ctl.checkAccess).
		Doc("Check whether the current user holds any of the given permissions").
		Param(ws.QueryParameter("permissions", "Comma-separated permission slugs; empty means any authenticated user").DataType("string")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Access granted", AccessResponse{}).
		Returns(http.StatusUnauthorized, "Unauthenticated", response.ErrorEnvelope{}).
		Returns(http.StatusForbidden, "Access denied", response.ErrorEnvelope{}))
}

func (ctl *AuthController) login(req *restful.Request, resp *restful.Response) {
	input := new(services.LoginInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}

	result, err := ctl.authService.Login(req.Request.Context(), input)
	if err != nil {
		ctl.metrics.ObserveLogin(metrics.ResultFailure)
		ctl.fail(req, resp, err)
		return
	}
	ctl.metrics.ObserveLogin(metrics.ResultSuccess)

	ctl.cookies.SetSessionCookie(resp.ResponseWriter, result.Token)
	response.OK(resp, LoginResponse{User: result.User, Message: "Login successful"})
}

// logout always succeeds; the cookie is cleared whether or not a session existed.
func (ctl *AuthController) logout(req *restful.Request, resp *restful.Response) {
	ctl.cookies.ClearSessionCookie(resp.ResponseWriter)
	response.OK(resp, MessageResponse{Message: "Logout successful"})
}

func (ctl *AuthController) verifyToken(req *restful.Request, resp *restful.Response) {
	identity, err := requestingUser(req)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, VerifyResponse{User: identity})
}

func (ctl *AuthController) checkAccess(req *restful.Request, resp *restful.Response) {
	identity, err := requestingUser(req)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}

	var raw []string
	for _, p := range strings.Split(req.QueryParameter("permissions"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			raw = append(raw, p)
		}
	}
	required, err := permissions.ParseAll(raw)
	if err != nil {
		ctl.fail(req, resp, apperr.ErrInvalidInput.WithField("permissions").WithMessage(err.Error()))
		return
	}

	if !ctl.resolver.HasPermission(identity.Slugs(), required) {
		ctl.fail(req, resp, apperr.ErrForbidden.WithDetail("required", permissions.Strings(required)))
		return
	}
	response.OK(resp, AccessResponse{HasAccess: true})
}
