package controllers

import (
	"net/http"

	restful "github.com/emicklei/go-restful/v3"
	"gorm.io/gorm"

	"milorg-admin/apperr"
	"milorg-admin/database"
	"milorg-admin/response"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type HealthController struct {
	base
	db *gorm.DB
}

func NewHealthController(db *gorm.DB, tr response.Translator) *HealthController {
	return &HealthController{base: base{translator: tr}, db: db}
}

func (ctl *HealthController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/healthz").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("").To(ctl.health).
		Doc("Liveness and database reachability").
		Returns(http.StatusOK, "Healthy", HealthResponse{}).
		Returns(http.StatusServiceUnavailable, "Database unreachable", response.ErrorEnvelope{}))
}

func (ctl *HealthController) health(req *restful.Request, resp *restful.Response) {
	if err := database.HealthCheck(req.Request.Context(), ctl.db); err != nil {
		response.Error(req, resp, ctl.translator, apperr.Network("database unreachable", err))
		return
	}
	response.OK(resp, HealthResponse{Status: "ok", Database: "up"})
}
