package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/logger"
)

// StatusFor maps an error code to its HTTP status
func StatusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnauthorized:
		return http.StatusForbidden
	case apperrors.CodeAlreadyResolved,
		apperrors.CodeRoomFull,
		apperrors.CodeRoomNotEmpty,
		apperrors.CodeTierMismatch,
		apperrors.CodeStudentAlreadyAssigned,
		apperrors.CodeStudentNotAssigned,
		apperrors.CodeLastManager,
		apperrors.CodeSelfDeactivation,
		apperrors.CodeEmailExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleAPIError writes the error envelope for err and aborts the chain.
// Storage failures are logged and reported without their cause.
func HandleAPIError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	status := StatusFor(code)

	resp := dto.NewErrorResponse(string(code), apperrors.PublicMessage(err))
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("requestId", c.GetString(RequestIDKey)).
			Msg("Request failed")
	} else {
		var ce *apperrors.CustomError
		if errors.As(err, &ce) && len(ce.Details) > 0 {
			resp.Details = ce.Details
		}
	}

	c.AbortWithStatusJSON(status, resp)
}
