package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	rules "github.com/generalbusiness/allodakar/internal/service/validate"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("pin", validatePin)
	_ = validate.RegisterValidation("phone", validatePhone)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validatePin(fl validator.FieldLevel) bool {
	return rules.Pin(fl.Field().String()) == nil
}

func validatePhone(fl validator.FieldLevel) bool {
	return rules.Phone(fl.Field().String()) == nil
}
