package services

import (
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/pkg/apperrors"
	"github.com/yigit/unihousing/internal/pkg/metrics"
	"github.com/yigit/unihousing/internal/pkg/tracing"
)

// systemActor is recorded as the actor of operations started by the process itself.
const systemActor = "system"

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// lookupErr turns a repository read failure into a coded error.
func lookupErr(err error, entity string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Newf(apperrors.CodeNotFound, "%s not found", entity)
	}
	return apperrors.Storage(err)
}

// writeErr turns a repository write failure into a coded error. Duplicates
// become dupCode.
func writeErr(err error, dupCode apperrors.Code, dupMessage string) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return apperrors.New(dupCode, dupMessage)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.New(apperrors.CodeNotFound, "record no longer exists")
	}
	if errors.Is(err, repositories.ErrConstraint) {
		return apperrors.New(apperrors.CodeInvalidInput, "record violates a storage constraint")
	}
	return apperrors.Storage(err)
}

// coded leaves coded errors alone and hides everything else behind STORAGE_ERROR.
func coded(err error) error {
	if err == nil {
		return nil
	}
	var ce *apperrors.CustomError
	if errors.As(err, &ce) {
		return err
	}
	return apperrors.Storage(err)
}

// finish records the outcome of an operation on its span and in metrics.
func finish(span trace.Span, operation string, err error) {
	metrics.ObserveOperation(operation, string(apperrors.CodeOf(err)))
	tracing.End(span, err)
}

func invalid(message string) error {
	return apperrors.New(apperrors.CodeInvalidInput, message)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func strPtr(s string) *string {
	return &s
}
