package config

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

// getValidator returns the shared validator, with custom rules registered.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New()

		// power_of_two validates ring capacities. Zero is excluded; pair
		// with omitempty for fields where zero selects a default.
		_ = structValidator.RegisterValidation("power_of_two", func(fl validator.FieldLevel) bool {
			v := fl.Field().Uint()
			return v != 0 && v&(v-1) == 0
		})
	})
	return structValidator
}

// Validate checks the configuration against the struct validation tags.
//
// Validation does not mutate the config; normalization (e.g. log level
// casing) happens in ApplyDefaults.
func Validate(cfg *Config) error {
	return getValidator().Struct(cfg)
}
