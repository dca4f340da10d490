package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags plus the custom
// rules that tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Store.Type == "s3" {
		if cfg.Store.S3["bucket"] == nil || cfg.Store.S3["bucket"] == "" {
			return fmt.Errorf("store.s3: bucket is required")
		}
		if cfg.Store.S3["region"] == nil || cfg.Store.S3["region"] == "" {
			return fmt.Errorf("store.s3: region is required")
		}
	}

	uids := make(map[string]bool)
	for i, uid := range cfg.Auth.AllowedUIDs {
		if uids[uid] {
			return fmt.Errorf("auth.allowed_uids[%d]: duplicate uid %q", i, uid)
		}
		uids[uid] = true
	}

	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
