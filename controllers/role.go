package controllers

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"milorg-admin/auth"
	"milorg-admin/permissions"
	"milorg-admin/response"
	"milorg-admin/services"
)

type RoleController struct {
	base
	roles       services.RoleService
	permissions services.PermissionService
	guard       *auth.Guard
}

func NewRoleController(roles services.RoleService, perms services.PermissionService, guard *auth.Guard, tr response.Translator, logger *zap.Logger) *RoleController {
	return &RoleController{base: base{translator: tr, logger: logger}, roles: roles, permissions: perms, guard: guard}
}

// RegisterRoutes sets up roles on ws.
func (ctl *RoleController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/admin/roles").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{tagRoles}
	level := permissions.RolesManagement
	idParam := ws.PathParameter("id", "Identifier of the role").DataType("integer")

	ws.Route(protect(ws.GET("").To(ctl.list), ctl.guard, level).
		Doc("List roles with permissions and organization links").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", []auth.RoleView{}))

	ws.Route(protect(ws.GET("/{id}").To(ctl.get), ctl.guard, level).
		Doc("Get a role").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", auth.RoleView{}).
		Returns(http.StatusNotFound, "Not found", response.ErrorEnvelope{}))

	ws.Route(protect(ws.POST("").To(ctl.create), ctl.guard, level).
		Doc("Create a role and its permission, organization and section links").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RoleInput{}).
		Returns(http.StatusCreated, "Created", auth.RoleView{}).
		Returns(http.StatusBadRequest, "Invalid input", response.ErrorEnvelope{}))

	ws.Route(protect(ws.PUT("/{id}").To(ctl.update), ctl.guard, level).
		Doc("Replace a role and all of its links").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RoleInput{}).
		Returns(http.StatusOK, "Updated", auth.RoleView{}))

	ws.Route(protect(ws.DELETE("/{id}").To(ctl.delete), ctl.guard, level).
		Doc("Soft-delete a role; its users are left without a role").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Deleted", MessageResponse{}))
}

// RegisterPermissionRoutes sets up the permission catalog on ws.
func (ctl *RoleController) RegisterPermissionRoutes(ws *restful.WebService) {
	ws.Path("/api/admin/permissions").Produces(restful.MIME_JSON)

	ws.Route(protect(ws.GET("").To(ctl.listPermissions), ctl.guard, permissions.RolesManagement).
		Doc("List permissions grouped by category").
		Metadata(restfulspec.KeyOpenAPITags, []string{tagRoles}).
		Returns(http.StatusOK, "OK", []services.PermissionGroup{}))
}

func (ctl *RoleController) list(req *restful.Request, resp *restful.Response) {
	roles, err := ctl.roles.ListRoles(req.Request.Context())
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, roles)
}

func (ctl *RoleController) get(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	role, err := ctl.roles.GetRole(req.Request.Context(), id)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, role)
}

func (ctl *RoleController) create(req *restful.Request, resp *restful.Response) {
	input := new(services.RoleInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	role, err := ctl.roles.CreateRole(req.Request.Context(), input)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.Created(resp, role)
}

func (ctl *RoleController) update(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	input := new(services.RoleInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	role, err := ctl.roles.UpdateRole(req.Request.Context(), id, input)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, role)
}

func (ctl *RoleController) delete(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	if err := ctl.roles.DeleteRole(req.Request.Context(), id); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	ctl.deleted(resp, "Role")
}

func (ctl *RoleController) listPermissions(req *restful.Request, resp *restful.Response) {
	groups, err := ctl.permissions.ListGrouped(req.Request.Context())
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, groups)
}
