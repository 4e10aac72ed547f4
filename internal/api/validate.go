package api

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/izposoja/internal/model"
)

var validate = newValidator()

var isbnPattern = regexp.MustCompile(`^(\d{9}[\dX]|\d{13})$`)

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
		return validISBN(fl.Field().String())
	})
	v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.ValidRole(fl.Field().String())
	})
	v.RegisterValidation("item_status", func(fl validator.FieldLevel) bool {
		return model.ValidItemStatus(fl.Field().String())
	})
	return v
}

// validISBN accepts ISBN-10 and ISBN-13 with optional hyphens or spaces.
// Check digits are not verified.
func validISBN(s string) bool {
	s = strings.NewReplacer("-", "", " ", "").Replace(strings.ToUpper(s))
	return isbnPattern.MatchString(s)
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateStruct runs struct tag validation and converts failures into a
// requestError with one detail per field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return badRequest("invalid request: %v", err)
	}

	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return &requestError{Message: "validation failed", Details: details}
}

func fieldMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s is out of range (%s %s)", field, fe.Tag(), param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "isbn":
		return fmt.Sprintf("%s must be a valid ISBN (10 or 13 digits)", field)
	case "role":
		return fmt.Sprintf("%s must be admin, librarian or assistant", field)
	case "item_status":
		return fmt.Sprintf("%s is not a known circulation status", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
