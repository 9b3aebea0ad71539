package handler

import (
	"fmt"

	"licensecloud/internal/app/license"
	"licensecloud/internal/app/role"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-version"
)

// RegisterValidators добавляет в валидатор gin теги license_type, license_key,
// user_role и semver.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	validators := map[string]validator.Func{
		"license_type": func(fl validator.FieldLevel) bool {
			return license.Type(fl.Field().String()).Valid()
		},
		"license_key": func(fl validator.FieldLevel) bool {
			return license.ValidKey(license.NormalizeKey(fl.Field().String()))
		},
		"user_role": func(fl validator.FieldLevel) bool {
			return role.Role(fl.Field().String()).Valid()
		},
		"semver": func(fl validator.FieldLevel) bool {
			_, err := version.NewVersion(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}
