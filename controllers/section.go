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

type SectionController struct {
	base
	service services.SectionService
	guard   *auth.Guard
}

func NewSectionController(service services.SectionService, guard *auth.Guard, tr response.Translator, logger *zap.Logger) *SectionController {
	return &SectionController{base: base{translator: tr, logger: logger}, service: service, guard: guard}
}

func (ctl *SectionController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/admin/sections").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{tagSections}
	level := permissions.SectionsManagement
	idParam := ws.PathParameter("id", "Identifier of the section").DataType("integer")

	ws.Route(protect(ws.GET("").To(ctl.list), ctl.guard, level).
		Doc("List sections, optionally of one organization").
		Param(ws.QueryParameter("organizationId", "Restrict to this organization").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", []services.SectionResponse{}))

	ws.Route(protect(ws.GET("/check-acronym").To(ctl.checkAcronym), ctl.guard, level).
		Doc("Check whether an acronym is free within an organization").
		Param(ws.QueryParameter("organizationId", "Organization").DataType("integer").Required(true)).
		Param(ws.QueryParameter("acronym", "Acronym to check, case-insensitive").DataType("string").Required(true)).
		Param(ws.QueryParameter("excludeId", "Section being edited").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", services.AcronymCheckResponse{}))

	ws.Route(protect(ws.GET("/{id}").To(ctl.get), ctl.guard, level).
		Doc("Get a section").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", services.SectionResponse{}).
		Returns(http.StatusNotFound, "Not found", response.ErrorEnvelope{}))

	ws.Route(protect(ws.POST("").To(ctl.create), ctl.guard, level).
		Doc("Create a section").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.SectionInput{}).
		Returns(http.StatusCreated, "Created", services.SectionResponse{}).
		Returns(http.StatusConflict, "Acronym already used in the organization", response.ErrorEnvelope{}))

	ws.Route(protect(ws.PUT("/{id}").To(ctl.update), ctl.guard, level).
		Doc("Update a section").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.SectionInput{}).
		Returns(http.StatusOK, "Updated", services.SectionResponse{}).
		Returns(http.StatusConflict, "Acronym already used in the organization", response.ErrorEnvelope{}))

	ws.Route(protect(ws.DELETE("/{id}").To(ctl.delete), ctl.guard, level).
		Doc("Soft-delete a section").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Deleted", MessageResponse{}))
}

func (ctl *SectionController) list(req *restful.Request, resp *restful.Response) {
	orgID, err := queryID(req, "organizationId")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	sections, err := ctl.service.ListSections(req.Request.Context(), orgID)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, sections)
}

func (ctl *SectionController) checkAcronym(req *restful.Request, resp *restful.Response) {
	orgID, err := queryID(req, "organizationId")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	excludeID, err := queryID(req, "excludeId")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	available, err := ctl.service.AcronymAvailable(req.Request.Context(), orgID, req.QueryParameter("acronym"), excludeID)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, services.AcronymCheckResponse{Available: available})
}

func (ctl *SectionController) get(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	section, err := ctl.service.GetSection(req.Request.Context(), id)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, section)
}

func (ctl *SectionController) create(req *restful.Request, resp *restful.Response) {
	input := new(services.SectionInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	section, err := ctl.service.CreateSection(req.Request.Context(), input)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.Created(resp, section)
}

func (ctl *SectionController) update(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	input := new(services.SectionInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	section, err := ctl.service.UpdateSection(req.Request.Context(), id, input)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, section)
}

func (ctl *SectionController) delete(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	if err := ctl.service.DeleteSection(req.Request.Context(), id); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	ctl.deleted(resp, "Section")
}
