package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// validateStruct runs struct-tag validation and converts the result into a
// ValidationError with a readable message
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &ValidationError{Message: err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Field()
		param := fe.Param()

		switch fe.Tag() {
		case "required", "notblank":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must be at least "+param)
		case "max":
			messages = append(messages, field+" must be at most "+param+" characters")
		case "gt":
			messages = append(messages, field+" must be greater than "+param)
		case "url":
			messages = append(messages, field+" must be a valid URL")
		case "oneof":
			messages = append(messages, field+" must be one of: "+param)
		default:
			messages = append(messages, field+" is invalid")
		}
	}

	return &ValidationError{Message: strings.Join(messages, "; ")}
}
