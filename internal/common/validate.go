package common

import (
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs struct-tag validation and converts failures into an
// AppError carrying per-field details for the inline validation UI.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return NewAppError("INTERNAL", "validation misconfigured", http.StatusInternalServerError, err)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "request validation failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    details,
	}
}
