package validation

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps validator for echo and for internal registration
// checks.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New builds the validator with null-type support and the custom rules.
func New() *CustomValidator {
	v := validator.New()

	registerNullTypes(v)

	// a rule that fails to register is a programming error
	if err := registerRules(v); err != nil {
		panic("validation: failed to register rules: " + err.Error())
	}

	return &CustomValidator{validator: v}
}
