package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/middleware"
)

// BackupController triggers database backups
type BackupController struct {
	backups *services.BackupService
}

// NewBackupController creates a new BackupController
func NewBackupController(backups *services.BackupService) *BackupController {
	return &BackupController{backups: backups}
}

// CreateBackup writes a snapshot of every entity to the backup store
// @Summary Back up the database
// @Tags backup
// @Produce json
// @Success 201 {object} dto.APIResponse{data=services.BackupResult}
// @Failure 403 {object} dto.APIResponse "Requester is not an active manager"
// @Router /backup [post]
func (c *BackupController) CreateBackup(ctx *gin.Context) {
	var req dto.RequesterRequest
	if !middleware.BindOptionalJSON(ctx, &req) {
		return
	}
	requesterID, ok := requester(ctx, claimedRequester(ctx, req.RequesterID))
	if !ok {
		return
	}

	result, err := c.backups.Backup(ctx.Request.Context(), requesterID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, result)
}
