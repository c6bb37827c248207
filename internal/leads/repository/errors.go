package repository

import (
	"errors"

	"leadflow_backend/platform/apperr"
)

// MapError converts store sentinels to typed application errors. Rule errors
// raised inside a MutateFunc pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperr.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("lead not found").WithOp(op)
	case errors.Is(err, ErrVersionConflict):
		return apperr.Wrap(apperr.KindConflict, "lead was modified concurrently, retry the request", err).WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "lead store failure", err).WithOp(op)
	}
}
