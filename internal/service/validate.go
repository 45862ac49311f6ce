package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/universal-api/internal/errs"
)

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkInput runs struct validation and converts failures into *errs.ValidationError.
func checkInput(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	ve := &errs.ValidationError{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		ve.Fields[fe.Field()] = reason(fe)
	}
	return ve
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func checkOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return errs.Invalid("user_id", "is required")
	}
	return nil
}
