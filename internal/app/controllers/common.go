package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/middleware"
)

// requester resolves the acting user or writes the error response.
func requester(ctx *gin.Context, claimed string) (string, bool) {
	id, err := middleware.Requester(ctx, claimed)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return "", false
	}
	return id, true
}

// claimedRequester reads requesterId from the query for commands without a body.
func claimedRequester(ctx *gin.Context, bodyID string) string {
	if bodyID != "" {
		return bodyID
	}
	return ctx.Query("requesterId")
}

func respond(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, dto.NewSuccessResponse(data))
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func upperPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := upper(*s)
	return &v
}
