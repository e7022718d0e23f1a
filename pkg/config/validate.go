package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tag constraints and cross-field invariants
// that struct tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationErrors(err)
	}

	if cfg.Database.StoreDir == "" {
		return fmt.Errorf("database.store_dir is required")
	}
	if cfg.Zipscript.FlushThreshold < 1 {
		return fmt.Errorf("zipscript.flush_threshold must be at least 1")
	}

	return nil
}

func formatValidationErrors(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
	}

	combined := msgs[0]
	for _, m := range msgs[1:] {
		combined += "; " + m
	}
	return fmt.Errorf("%s", combined)
}
