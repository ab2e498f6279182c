package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that
// cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Logs must never share stdout with the response stream
	if cfg.Logging.Output == "stdout" {
		return fmt.Errorf("logging.output: stdout is reserved for responses, use stderr or a file path")
	}

	// Policy rules must be absolute paths; relative rules depend on the
	// process working directory and are always a misconfiguration
	for i, p := range cfg.Policy.AllowedPaths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("policy.allowed_paths[%d]: %q is not absolute", i, p)
		}
	}
	for i, p := range cfg.Policy.DeniedPaths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("policy.denied_paths[%d]: %q is not absolute", i, p)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
