package controllers

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"milorg-admin/auth"
	"milorg-admin/metrics"
	"milorg-admin/permissions"
	"milorg-admin/ratelimit"
	"milorg-admin/response"
	"milorg-admin/services"
)

// RouterConfig is everything the HTTP API is assembled from.
type RouterConfig struct {
	DB         *gorm.DB
	Services   services.Set
	Cookies    *auth.CookieStore
	Resolver   *permissions.Resolver
	Translator response.Translator
	Logger     *zap.Logger
	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Metrics
	// LoginLimiter, when set, throttles POST /api/auth/login per client IP.
	LoginLimiter ratelimit.Limiter
	LoginBurst   int
	// ClientIPs keys the limiter and request logs. Nil uses the remote host.
	ClientIPs *ratelimit.IPResolver
}

// NewContainer registers every WebService, the OpenAPI document and the
// metrics endpoint on a fresh container.
func NewContainer(cfg RouterConfig) *restful.Container {
	lg := cfg.Logger
	verifier := ObservedVerifier(cfg.Services.Auth, cfg.Metrics)
	guard := auth.NewGuard(verifier, cfg.Resolver, cfg.Cookies, cfg.Translator, lg.Named("guard"))

	container := restful.NewContainer()
	container.Filter(RequestID)
	if cfg.Metrics != nil {
		container.Filter(cfg.Metrics.Filter)
	}
	container.Filter(RequestLogger(lg.Named("http"), cfg.ClientIPs))

	var loginFilter restful.FilterFunction
	if cfg.LoginLimiter != nil {
		loginFilter = ratelimit.Filter(cfg.LoginLimiter, cfg.LoginBurst, cfg.ClientIPs, cfg.Translator, lg.Named("ratelimit"))
	}

	authCtl := NewAuthController(AuthControllerConfig{
		AuthService: cfg.Services.Auth,
		Guard:       guard,
		Cookies:     cfg.Cookies,
		Resolver:    cfg.Resolver,
		LoginFilter: loginFilter,
		Metrics:     cfg.Metrics,
		Translator:  cfg.Translator,
		Logger:      lg,
	})
	roleCtl := NewRoleController(cfg.Services.Roles, cfg.Services.Permissions, guard, cfg.Translator, lg)

	registrars := []func(*restful.WebService){
		authCtl.RegisterRoutes,
		NewOrganizationController(cfg.Services.Organizations, guard, cfg.Translator, lg).RegisterRoutes,
		NewSectionController(cfg.Services.Sections, guard, cfg.Translator, lg).RegisterRoutes,
		NewRankController(cfg.Services.Ranks, guard, cfg.Translator, lg).RegisterRoutes,
		roleCtl.RegisterRoutes,
		roleCtl.RegisterPermissionRoutes,
		NewUserController(cfg.Services.Users, guard, cfg.Translator, lg).RegisterRoutes,
	}
	if cfg.DB != nil {
		registrars = append(registrars, NewHealthController(cfg.DB, cfg.Translator).RegisterRoutes)
	}
	for _, register := range registrars {
		ws := new(restful.WebService)
		register(ws)
		container.Add(ws)
	}

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))
	if cfg.Metrics != nil {
		container.Handle("/metrics", cfg.Metrics.Handler())
	}
	return container
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Military organization admin API",
			Description: "Sessions, permissions and administration of organizations, sections, ranks, roles and users",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: tagAuth, Description: "Login, logout and session checks"}},
		{TagProps: spec.TagProps{Name: tagOrganizations, Description: "Organization tree"}},
		{TagProps: spec.TagProps{Name: tagSections, Description: "Sections of an organization"}},
		{TagProps: spec.TagProps{Name: tagRanks, Description: "Military ranks"}},
		{TagProps: spec.TagProps{Name: tagRoles, Description: "Roles and permissions"}},
		{TagProps: spec.TagProps{Name: tagUsers, Description: "User administration"}},
	}
}
