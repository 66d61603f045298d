package middleware

import (
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
)

func init() {
	// Report json names instead of Go field names in validation errors.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// BindJSON binds and validates the request body. On failure it writes an
// INVALID_INPUT response and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		HandleAPIError(c, translateBindError(err))
		return false
	}
	return true
}

// BindOptionalJSON is BindJSON for commands whose body may be empty.
func BindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		HandleAPIError(c, translateBindError(err))
		return false
	}
	return true
}

func translateBindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(apperrors.CodeInvalidInput, err, "invalid request body")
	}

	out := dto.NewValidationErrors()
	for _, fe := range fieldErrs {
		out.AddError(fe.Field(), formatValidationError(fe))
	}
	return apperrors.New(apperrors.CodeInvalidInput, out.Errors[0].Message).WithDetail("errors", out.Errors)
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
