package directory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/model"
)

// validate checks the struct tags of model.Fields. It is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name, which is how clients know them.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateFields checks required fields and maximum lengths. Lengths are counted in characters,
// not bytes. On success the returned ValidationError is non-nil and may be empty.
func validateFields(fields model.Fields) (*ValidationError, error) {
	verr := &ValidationError{}
	err := validate.Struct(fields)
	if err == nil {
		return verr, nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil, fmt.Errorf("validate fields: %w", err)
	}
	for _, fe := range fieldErrors {
		verr.add(fe.Field(), message(fe))
	}
	return verr, nil
}

// message renders a field error the way it is shown next to the form input.
func message(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}
