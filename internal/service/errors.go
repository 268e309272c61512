package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vaidashi/garment-order-tracker/internal/repository"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

// Page bounds a listing
type Page struct {
	Limit  int
	Offset int
}

// translate turns storage and context failures into AppErrors. AppErrors
// raised by the lifecycle pass through untouched.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError(fmt.Sprintf("%s not found", what))
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflictError(fmt.Sprintf("%s already exists", what)).WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("request timed out").WithCause(err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewAppError(apperrors.ErrTimeout, "request cancelled", http.StatusRequestTimeout, false).WithCause(err)
	default:
		return apperrors.NewInternalError(fmt.Sprintf("failed to access %s", what)).WithCause(err)
	}
}

func notFound(what, id string) *apperrors.AppError {
	return apperrors.NewNotFoundError(fmt.Sprintf("%s %s not found", what, id)).WithContext("id", id)
}
