// Package validators wires go-playground/validator into echo and registers
// the application's custom rules.
package validators

import (
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// phonePattern matches the registration phone format +XXX XXX-XX-XX.
var phonePattern = regexp.MustCompile(`^\+\d{3} \d{3}-\d{2}-\d{2}$`)

// Validator adapts a validator.Validate instance to echo.Validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the echo validator with custom rules registered
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
