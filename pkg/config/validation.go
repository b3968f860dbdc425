package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	protocol "github.com/marmos91/wwwserver/internal/protocol/www"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.WWW.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	w := cfg.Adapters.WWW
	if w.BufferSize < protocol.MinBufferSize {
		return fmt.Errorf("adapters.www.buffer_size: must be at least %d, got %d", protocol.MinBufferSize, w.BufferSize)
	}
	if w.ReadBufferSize < w.BufferSize {
		return fmt.Errorf("adapters.www.read_buffer_size: must be at least buffer_size (%d), got %d", w.BufferSize, w.ReadBufferSize)
	}
	if w.TickInterval < 0 || w.DrainDelay < 0 || w.WriteTimeout < 0 || w.MetricsLogInterval < 0 {
		return fmt.Errorf("adapters.www: durations must not be negative")
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == w.Port {
		return fmt.Errorf("server.metrics.port: %d is already used by adapters.www.port", w.Port)
	}

	switch cfg.Site.Type {
	case "ini":
		if optionString(cfg.Site.INI, "path") == "" {
			return fmt.Errorf("site.ini.path: required when site.type is ini")
		}
	case "badger":
		if optionString(cfg.Site.Badger, "db_path") == "" {
			return fmt.Errorf("site.badger.db_path: required when site.type is badger")
		}
	}

	switch cfg.Medium.Type {
	case "filesystem":
		if optionString(cfg.Medium.Filesystem, "path") == "" {
			return fmt.Errorf("medium.filesystem.path: required when medium.type is filesystem")
		}
	case "s3":
		if optionString(cfg.Medium.S3, "bucket") == "" {
			return fmt.Errorf("medium.s3.bucket: required when medium.type is s3")
		}
		if optionString(cfg.Medium.S3, "region") == "" {
			return fmt.Errorf("medium.s3.region: required when medium.type is s3")
		}
	}

	return nil
}

// optionString returns a string option from a store option map, or "" if it
// is missing or not a string.
func optionString(options map[string]any, key string) string {
	s, _ := options[key].(string)
	return s
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
