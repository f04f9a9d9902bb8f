package controllers

import (
	"net/http"
	"strconv"
	"strings"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/permissions"
	"milorg-admin/response"
)

// MessageResponse is the data of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// base carries what every controller needs to render results.
type base struct {
	translator response.Translator
	logger     *zap.Logger
}

// fail logs unclassified and SYSTEM errors, then writes the error envelope.
func (b base) fail(req *restful.Request, resp *restful.Response, err error) {
	if apperr.KindOf(err) == apperr.KindSystem {
		b.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", req.Request.Method),
			zap.String("path", req.Request.URL.Path),
			zap.String("request_id", RequestIDFrom(req)))
	}
	response.Error(req, resp, b.translator, err)
}

func (b base) deleted(resp *restful.Response, what string) {
	response.Write(resp, http.StatusOK, MessageResponse{Message: what + " deleted"}, what+" deleted")
}

// pathID parses a positive integer path parameter.
func pathID(req *restful.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(req.PathParameter(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.ErrInvalidInput.WithField(name).WithMessage("invalid " + name)
	}
	return uint(id), nil
}

// queryID parses an optional positive integer query parameter; absent is 0.
func queryID(req *restful.Request, name string) (uint, error) {
	raw := strings.TrimSpace(req.QueryParameter(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperr.ErrInvalidInput.WithField(name).WithMessage("invalid " + name)
	}
	return uint(id), nil
}

func queryInt(req *restful.Request, name string, def int) int {
	v, err := strconv.Atoi(req.QueryParameter(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func readEntity(req *restful.Request, v any) error {
	if err := req.ReadEntity(v); err != nil {
		return apperr.ErrInvalidInput.WithMessage("invalid request body").Wrap(err)
	}
	return nil
}

func requestingUser(req *restful.Request) (*auth.Identity, error) {
	identity, ok := auth.IdentityFrom(req)
	if !ok {
		return nil, apperr.ErrTokenMissing
	}
	return identity, nil
}

// Tag names used in the OpenAPI document.
const (
	tagAuth          = "auth"
	tagOrganizations = "organizations"
	tagSections      = "sections"
	tagRanks         = "ranks"
	tagRoles         = "roles"
	tagUsers         = "users"
)

// protect requires a session and, when level is non-empty, one of its permissions.
func protect(rb *restful.RouteBuilder, g *auth.Guard, level ...permissions.Slug) *restful.RouteBuilder {
	return rb.Filter(g.Authenticate()).Filter(g.Require(level...)).
		Returns(http.StatusUnauthorized, "Unauthenticated", response.ErrorEnvelope{}).
		Returns(http.StatusForbidden, "Forbidden", response.ErrorEnvelope{})
}
