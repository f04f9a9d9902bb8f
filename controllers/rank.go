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

type RankController struct {
	base
	service services.RankService
	guard   *auth.Guard
}

func NewRankController(service services.RankService, guard *auth.Guard, tr response.Translator, logger *zap.Logger) *RankController {
	return &RankController{base: base{translator: tr, logger: logger}, service: service, guard: guard}
}

// RegisterRoutes exposes ranks. Listing is open to any authenticated user
// since forms across the app pick ranks from it.
func (ctl *RankController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/admin/ranks").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{tagRanks}

	ws.Route(protect(ws.GET("").To(ctl.list), ctl.guard).
		Doc("List ranks from highest to lowest").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", []services.RankResponse{}))

	ws.Route(protect(ws.POST("").To(ctl.create), ctl.guard, permissions.RanksManagement).
		Doc("Create a rank").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RankInput{}).
		Returns(http.StatusCreated, "Created", services.RankResponse{}))

	ws.Route(protect(ws.DELETE("/{id}").To(ctl.delete), ctl.guard, permissions.RanksManagement).
		Doc("Soft-delete a rank no user holds").
		Param(ws.PathParameter("id", "Identifier of the rank").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Deleted", MessageResponse{}).
		Returns(http.StatusConflict, "Rank in use", response.ErrorEnvelope{}))
}

func (ctl *RankController) list(req *restful.Request, resp *restful.Response) {
	ranks, err := ctl.service.ListRanks(req.Request.Context())
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.OK(resp, ranks)
}

func (ctl *RankController) create(req *restful.Request, resp *restful.Response) {
	input := new(services.RankInput)
	if err := readEntity(req, input); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	rank, err := ctl.service.CreateRank(req.Request.Context(), input)
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	response.Created(resp, rank)
}

func (ctl *RankController) delete(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.fail(req, resp, err)
		return
	}
	if err := ctl.service.DeleteRank(req.Request.Context(), id); err != nil {
		ctl.fail(req, resp, err)
		return
	}
	ctl.deleted(resp, "Rank")
}
