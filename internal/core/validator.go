package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"noteria/internal/types"
)

// ValidationError describes one rejected field of a request body.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validator wraps go-playground/validator with the domain tags request DTOs
// use: category_color, task_status, task_priority and reminder_type.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator. Field names in errors follow the json
// tag of the struct field.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "category_color", func(fl validator.FieldLevel) bool {
		return types.CategoryColor(fl.Field().String()).Valid()
	})
	mustRegister(v, "task_status", func(fl validator.FieldLevel) bool {
		return types.TaskStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "task_priority", func(fl validator.FieldLevel) bool {
		return types.Priority(fl.Field().String()).Valid()
	})
	mustRegister(v, "reminder_type", func(fl validator.FieldLevel) bool {
		return types.ReminderType(fl.Field().String()).Valid()
	})

	return &Validator{validate: v, logger: logger}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering validation tag %q: %v", tag, err))
	}
}

// ValidateStruct validates s and returns a *types.AppError whose code is that
// of the first failing field; every failure is listed under the
// "validation_errors" detail.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", slog.String("error", err.Error()))
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toValidationError(fe))
	}

	return types.NewAppErrorWithDetails(
		types.ErrorCode(out[0].Code),
		out[0].Message,
		err,
		map[string]any{"validation_errors": out},
	)
}

func toValidationError(fe validator.FieldError) ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_with", "required_if":
		return ValidationError{
			Field:   field,
			Code:    string(types.ErrCodeValidationMissingField),
			Message: field + " is required",
		}
	case "max":
		if field == "title" || field == "name" {
			return ValidationError{
				Field:   field,
				Code:    string(types.ErrCodeValidationTitleTooLong),
				Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param()),
			}
		}
		return ValidationError{
			Field:   field,
			Code:    string(types.ErrCodeValidationInvalidField),
			Message: fmt.Sprintf("%s must be at most %s long", field, fe.Param()),
		}
	case "category_color", "task_status", "task_priority", "reminder_type", "oneof":
		return ValidationError{
			Field:   field,
			Code:    string(types.ErrCodeValidationInvalidEnum),
			Message: fmt.Sprintf("%s has an unsupported value %q", field, fmt.Sprint(fe.Value())),
		}
	default:
		return ValidationError{
			Field:   field,
			Code:    string(types.ErrCodeValidationInvalidField),
			Message: fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()),
		}
	}
}
