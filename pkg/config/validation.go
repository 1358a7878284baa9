package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags
// and the cross-field constraints the tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if cfg.Pool.MinSize > cfg.Pool.MaxSize {
		return fmt.Errorf("invalid configuration: pool.min_size (%d) exceeds pool.max_size (%d)",
			cfg.Pool.MinSize, cfg.Pool.MaxSize)
	}
	if cfg.Memory.Budget == 0 {
		return fmt.Errorf("invalid configuration: memory.budget must be positive")
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("invalid configuration: database.path is required")
	}

	return nil
}

// describeFieldError renders one validation failure in config-file terms.
func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be below %s", field, strings.ToLower(fe.Param()))
	case "min", "max":
		return fmt.Sprintf("%s out of range (%s=%s)", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
