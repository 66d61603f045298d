package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/middleware"
	"github.com/yigit/unihousing/internal/pkg/helpers"
)

// LogController exposes the audit trail
type LogController struct {
	logs *services.LogService
}

// NewLogController creates a new LogController
func NewLogController(logs *services.LogService) *LogController {
	return &LogController{logs: logs}
}

// ListLogs returns audit entries newest first
// @Summary List audit logs
// @Tags logs
// @Produce json
// @Param action query string false "Action filter"
// @Param userId query string false "Actor filter"
// @Param limit query int false "Page size (default 100, max 500)"
// @Param skip query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=[]models.Log}
// @Failure 403 {object} dto.APIResponse "Requester is not an active manager"
// @Router /logs [get]
func (c *LogController) ListLogs(ctx *gin.Context) {
	requesterID, ok := requester(ctx, ctx.Query("requesterId"))
	if !ok {
		return
	}
	limit, skip := helpers.ParsePaginationParams(ctx)
	logs, err := c.logs.List(ctx.Request.Context(), requesterID, repositories.LogFilter{
		Action: models.LogAction(ctx.Query("action")),
		UserID: ctx.Query("userId"),
		Limit:  limit,
		Skip:   skip,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, logs)
}
