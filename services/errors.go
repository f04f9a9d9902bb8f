package services

import (
	"errors"

	"gorm.io/gorm"

	"milorg-admin/apperr"
)

// dbError maps repository errors onto the application taxonomy.
func dbError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound.WithMessage(what + " not found").WithDetail("resource", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.ErrDuplicateEntry.Wrap(err)
	default:
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.System("database error", err)
	}
}

// referenceError reports a missing referenced record as invalid input on field.
func referenceError(err error, field, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrInvalidInput.WithField(field).WithMessage(msg)
	}
	return dbError(err, field)
}
