package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"milorg-admin/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so field errors point at request keys.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks struct tags. A missing required value yields
// MISSING_FIELDS, any other violation INVALID_INPUT. Both carry the field.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.ErrInvalidInput.Wrap(err)
	}

	first := verrs[0]
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	if first.Tag() == "required" {
		return apperr.ErrMissingFields.WithField(first.Field()).WithDetail("fields", fields)
	}
	return apperr.ErrInvalidInput.
		WithField(first.Field()).
		WithMessage(first.Field() + " failed " + first.Tag() + " validation").
		WithDetail("fields", fields)
}
