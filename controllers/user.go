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

// UserController serves user administration
type UserController struct {
	base
	userService services.UserService
	guard       *auth.Guard
}

// NewUserController creates a UserController instance
func NewUserController(userService services.UserService, guard *auth.Guard, tr response.Translator, logger *zap.Logger) *UserController {
	return &UserController{base: base{translator: tr, logger: logger}, userService: userService, guard: guard}
}

// --- go-restful Route Definitions ---

// RegisterRoutes sets up the user-related routes for a go-restful WebService.
func (ctl *UserController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/admin/users").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{tagUsers}
	level := permissions.UsersManagement
	idParam := ws.PathParameter("user-id", "Identifier of the user").DataType("integer")

	ws.Route(protect(ws.GET("").To(ctl.listUsersHandler), ctl.guard, level).
		Doc("List users with pagination").
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("page_size", "Users per page (default 10)").DataType("integer").DefaultValue("10")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Users listed successfully", services.PaginatedUsersResponse{}))

	ws.Route(protect(ws.GET("/{user-id}").To(ctl.getUserByIDHandler), ctl.guard, level).
		Doc("Get user by ID").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "User found", services.UserResponse{}).
		Returns(http.StatusNotFound, "User not found", response.ErrorEnvelope{}))

	ws.Route(protect(ws.POST("").To(ctl.createUserHandler), ctl.guard, level).
		Doc("Create a user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.CreateUserInput{}).
		Returns(http.StatusCreated, "User created successfully", services.UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", response.ErrorEnvelope{}).
		Returns(http.StatusConflict, "Email or national id already exists", response.ErrorEnvelope{}))

	ws.Route(protect(ws.PUT("/{user-id}").To(ctl.updateUserHandler), ctl.guard, level).
		Doc("Update user by ID").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.UpdateUserInput{}).
		Returns(http.StatusOK, "User updated successfully", services.UserResponse{}).
		Returns(http.StatusNotFound, "User not found", response.ErrorEnvelope{}).
		Returns(http.StatusConflict, "Email conflict", response.ErrorEnvelope{}))

	ws.Route(protect(ws.PUT("/{user-id}/role").To(ctl.assignRoleHandler), ctl.guard, level).
		Doc("Assign or remove the user's role").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.AssignRoleInput{}).
		Returns(http.StatusOK, "Role assigned", services.UserResponse{}))

	ws.Route(protect(ws.DELETE("/{user-id}").To(ctl.deleteUserHandler), ctl.guard, level).
		Doc("Soft-delete user by ID").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "User deleted successfully", MessageResponse{}).
		Returns(http.StatusNotFound, "User not found", response.ErrorEnvelope{}))
}

// --- go-restful Handler Functions ---

func (ctl *UserController) createUserHandler(request *restful.Request, resp *restful.Response) {
	input := new(services.CreateUserInput)
	if err := readEntity(request, input); err != nil {
		ctl.fail(request, resp, err)
		return
	}
	user, err := ctl.userService.CreateUser(request.Request.Context(), input)
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	response.Created(resp, user)
}

func (ctl *UserController) getUserByIDHandler(request *restful.Request, resp *restful.Response) {
	targetUserID, err := pathID(request, "user-id")
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	user, err := ctl.userService.GetUserByID(request.Request.Context(), targetUserID)
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	response.OK(resp, user)
}

func (ctl *UserController) updateUserHandler(request *restful.Request, resp *restful.Response) {
	targetUserID, err := pathID(request, "user-id")
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	input := new(services.UpdateUserInput)
	if err := readEntity(request, input); err != nil {
		ctl.fail(request, resp, err)
		return
	}
	updatedUser, err := ctl.userService.UpdateUser(request.Request.Context(), targetUserID, input)
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	response.OK(resp, updatedUser)
}

func (ctl *UserController) assignRoleHandler(request *restful.Request, resp *restful.Response) {
	targetUserID, err := pathID(request, "user-id")
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	input := new(services.AssignRoleInput)
	if err := readEntity(request, input); err != nil {
		ctl.fail(request, resp, err)
		return
	}
	user, err := ctl.userService.AssignRole(request.Request.Context(), targetUserID, input.RoleID)
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	response.OK(resp, user)
}

func (ctl *UserController) listUsersHandler(request *restful.Request, resp *restful.Response) {
	page := queryInt(request, "page", 1)
	pageSize := queryInt(request, "page_size", 10)
	if pageSize > 100 {
		pageSize = 100
	}
	users, err := ctl.userService.ListUsers(request.Request.Context(), page, pageSize)
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	response.OK(resp, users)
}

func (ctl *UserController) deleteUserHandler(request *restful.Request, resp *restful.Response) {
	targetUserID, err := pathID(request, "user-id")
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	requester, err := requestingUser(request)
	if err != nil {
		ctl.fail(request, resp, err)
		return
	}
	if err := ctl.userService.DeleteUser(request.Request.Context(), targetUserID, requester.ID); err != nil {
		ctl.fail(request, resp, err)
		return
	}
	ctl.deleted(resp, "User")
}
