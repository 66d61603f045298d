package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/middleware"
	"github.com/yigit/unihousing/internal/pkg/helpers"
)

// RequestController handles the request workflow endpoints
type RequestController struct {
	requests *services.RequestService
}

// NewRequestController creates a new RequestController
func NewRequestController(requests *services.RequestService) *RequestController {
	return &RequestController{requests: requests}
}

// CreateRequest submits a new request
// @Summary Submit a request
// @Tags requests
// @Accept json
// @Produce json
// @Param request body dto.CreateRequestRequest true "Request"
// @Success 201 {object} dto.APIResponse{data=models.Request}
// @Failure 400 {object} dto.APIResponse "Missing student or unknown type"
// @Router /requests [post]
func (c *RequestController) CreateRequest(ctx *gin.Context) {
	var req dto.CreateRequestRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	requesterID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	created, err := c.requests.Submit(ctx.Request.Context(), services.SubmitRequestInput{
		Type:        models.RequestType(upper(req.Type)),
		RequesterID: requesterID,
		StudentID:   req.StudentID,
		Description: req.Description,
		Reason:      req.Reason,
		DesiredRoom: req.DesiredRoom,
		RoomNumber:  req.RoomNumber,
		Severity:    models.Severity(upper(req.Severity)),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, created)
}

// UpdateRequestStatus approves or rejects a pending request
// @Summary Resolve a request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param request body dto.UpdateRequestStatusRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=models.Request}
// @Failure 403 {object} dto.APIResponse "Resolver is not an active manager"
// @Failure 409 {object} dto.APIResponse "Request already resolved"
// @Router /requests/{id}/status [patch]
func (c *RequestController) UpdateRequestStatus(ctx *gin.Context) {
	var req dto.UpdateRequestStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resolverID, ok := requester(ctx, req.ResolverID)
	if !ok {
		return
	}

	resolved, err := c.requests.Resolve(ctx.Request.Context(), services.ResolveRequestInput{
		RequestID:       ctx.Param("id"),
		Decision:        models.RequestStatus(upper(req.Status)),
		ResolverID:      resolverID,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, resolved)
}

// GetRequests lists requests newest first
// @Summary List requests
// @Tags requests
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param type query string false "Request type"
// @Param requester query string false "Submitting user id"
// @Param studentId query string false "Student id"
// @Param limit query int false "Page size"
// @Param skip query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=services.RequestPage}
// @Router /requests [get]
func (c *RequestController) GetRequests(ctx *gin.Context) {
	limit, skip := helpers.ParsePaginationParams(ctx)
	page, err := c.requests.List(ctx.Request.Context(), repositories.RequestFilter{
		Status:      models.RequestStatus(upper(ctx.Query("status"))),
		Type:        models.RequestType(upper(ctx.Query("type"))),
		RequesterID: ctx.Query("requester"),
		StudentID:   ctx.Query("studentId"),
		Limit:       limit,
		Skip:        skip,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, page)
}

// ExecuteRequest carries out an approved student deletion
// @Summary Execute an approved deletion request
// @Tags requests
// @Param id path string true "Request id"
// @Success 200 {object} dto.APIResponse{data=dto.MessageData}
// @Router /requests/{id}/execute [post]
func (c *RequestController) ExecuteRequest(ctx *gin.Context) {
	var req dto.ExecuteRequestRequest
	if !middleware.BindOptionalJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, claimedRequester(ctx, req.ResolverID))
	if !ok {
		return
	}

	if err := c.requests.ExecuteStudentDeletion(ctx.Request.Context(), ctx.Param("id"), actorID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageData{Message: "Student deleted"})
}
