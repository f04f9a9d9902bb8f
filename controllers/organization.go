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

type OrganizationController struct {
	base
	service services.OrganizationService
	guard   *auth.Guard
}

func NewOrganizationController(service services.OrganizationService, guard *auth.Guard, tr response.Translator, logger *zap.Logger) *OrganizationController {
	return &OrganizationController{base: base{translator: tr, logger: logger}, service: service, guard: guard}
}

func (ctl *OrganizationController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/admin/organizations").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{tagOrganizations}
	level := permissions.OrganizationsManage
	idParam := ws.PathParameter("id", "Identifier of the organization").DataType("integer")

	ws.Route(protect(ws.GET("").To(ctl.list), ctl.guard, level).
		Doc("List organizations").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", []services.OrganizationResponse{}))

	ws.Route(protect(ws.GET("/{id}").To(ctl.get), ctl.guard, level).
		Doc("Get an organization with its sub-organizations and sections").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", services.OrganizationResponse{}).
		Returns(http.StatusNotFound, "Not found", response.ErrorEnvelope{}))

	ws.Route(protect(ws.POST("").To(ctl.create), ctl.guard, level).
		Doc("Create an organization").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.OrganizationInput{}).
		Returns(http.StatusCreated, "Created", services.OrganizationResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", response.ErrorEnvelope{}))

	ws.Route(protect(ws.PUT("/{id}").To(ctl.update), ctl.guard, level).
		Doc("Update an organization; the new parent may not be the organization or one of its descendants").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.OrganizationInput{}).
		Returns(http.StatusOK, "Updated", services.OrganizationResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or cycle", response.ErrorEnvelope{}))

	ws.Route(protect(ws.DELETE("/{id}").To(ctl.delete), ctl.guard, level).
		Doc("Soft-delete an organization with its sections and users").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Deleted", MessageResponse{}).
		Returns(http.StatusConflict, "Active sub-organizations remain", response.ErrorEnvelope{}))
}

func (ctl *OrganizationController) list(req *restful.Request, resp *restful.Response) {
	orgs, err := ctl.service.ListOrganizations(req.Request.Context())
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, orgs)
}

func (ctl *OrganizationController) get(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	org, err := ctl.service.GetOrganization(req.Request.Context(), id)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, org)
}

func (ctl *OrganizationController) create(req *restful.Request, resp *restful.Response) {
	input := new(services.OrganizationInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	org, err := ctl.service.CreateOrganization(req.Request.Context(), input)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.Created(resp, org)
}

func (ctl *OrganizationController) update(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	input := new(services.OrganizationInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	org, err := ctl.service.UpdateOrganization(req.Request.Context(), id, input)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, org)
}

func (ctl *OrganizationController) delete(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	if err := ctl.service.DeleteOrganization(req.Request.Context(), id); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	ctl.deleted(resp, "Organization")
}
