package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/middleware"
)

// UserController handles staff account management
type UserController struct {
	users *services.UserService
}

// NewUserController creates a new UserController
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// CreateUser adds a staff account and returns its temporary password once
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "User information"
// @Success 201 {object} dto.APIResponse{data=services.CreatedUser}
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Router /users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	requesterID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	created, err := c.users.Create(ctx.Request.Context(), requesterID, services.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.RoleType(upper(req.Role)),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, created)
}

// UpdateUser changes a staff account
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param request body dto.UpdateUserRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.User}
// @Failure 409 {object} dto.APIResponse "Last manager or self deactivation"
// @Router /users/{id} [patch]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	var req dto.UpdateUserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	requesterID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	input := services.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
	}
	if v := upperPtr(req.Role); v != nil {
		role := models.RoleType(*v)
		input.Role = &role
	}

	user, err := c.users.Update(ctx.Request.Context(), requesterID, ctx.Param("id"), input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, user)
}

// DeleteUser removes a staff account
// @Summary Delete a user
// @Tags users
// @Param id path string true "User id"
// @Success 200 {object} dto.APIResponse{data=dto.MessageData}
// @Failure 409 {object} dto.APIResponse "Last active manager"
// @Router /users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	var req dto.RequesterRequest
	if !middleware.BindOptionalJSON(ctx, &req) {
		return
	}
	requesterID, ok := requester(ctx, claimedRequester(ctx, req.RequesterID))
	if !ok {
		return
	}

	if err := c.users.Delete(ctx.Request.Context(), requesterID, ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageData{Message: "User deleted"})
}

// ListUsers lists staff accounts
// @Summary List users
// @Tags users
// @Produce json
// @Param role query string false "MANAGER or SUPERVISOR"
// @Param active query bool false "Only active accounts"
// @Success 200 {object} dto.APIResponse{data=[]models.User}
// @Router /users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	requesterID, ok := requester(ctx, ctx.Query("requesterId"))
	if !ok {
		return
	}

	filter := repositories.UserFilter{Role: models.RoleType(upper(ctx.Query("role")))}
	filter.ActiveOnly = ctx.Query("active") == "true"

	users, err := c.users.List(ctx.Request.Context(), requesterID, filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, users)
}

// ResetPassword issues a new temporary password
// @Summary Reset a user's password
// @Tags users
// @Param id path string true "User id"
// @Success 200 {object} dto.APIResponse{data=services.CreatedUser}
// @Router /users/{id}/reset-password [post]
func (c *UserController) ResetPassword(ctx *gin.Context) {
	var req dto.RequesterRequest
	if !middleware.BindOptionalJSON(ctx, &req) {
		return
	}
	requesterID, ok := requester(ctx, claimedRequester(ctx, req.RequesterID))
	if !ok {
		return
	}

	reset, err := c.users.ResetPassword(ctx.Request.Context(), requesterID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, reset)
}
