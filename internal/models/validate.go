package models

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var crawlPeriodRe = regexp.MustCompile(`^[0-9]+[hdwmy]$`)

var (
	validatorOnce sync.Once
	v             *validator.Validate
)

// Validator returns the shared, lazily-initialized struct validator with
// the crawlperiod custom rule registered.
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		v = validator.New()
		_ = v.RegisterValidation("crawlperiod", func(fl validator.FieldLevel) bool {
			val := fl.Field().String()
			if val == "" {
				return true
			}
			return crawlPeriodRe.MatchString(val)
		})
	})
	return v
}

// ValidateStruct runs go-playground/validator tag validation, returning a
// apperrors.KindValidation error on failure.
func ValidateStruct(s interface{}) error {
	if err := Validator().Struct(s); err != nil {
		return errValidation(err.Error())
	}
	return nil
}
