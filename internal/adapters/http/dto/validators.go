package dto

import (
	"fmt"

	"github.com/4rubka/ClanMaster/internal/core/services"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the clan rules registered
func NewValidator() *validator.Validate {
	validate := validator.New()
	if err := RegisterCustomValidators(validate); err != nil {
		panic(err)
	}
	return validate
}

// RegisterCustomValidators registers custom validation rules for clan requests
func RegisterCustomValidators(validate *validator.Validate) error {
	if err := validate.RegisterValidation("clan_name", validateClanName); err != nil {
		return fmt.Errorf("failed to register clan_name validator: %w", err)
	}
	return nil
}

// validateClanName accepts 3-16 letters, digits or underscores
func validateClanName(fl validator.FieldLevel) bool {
	return services.ValidateName(fl.Field().String()) == nil
}

// ValidateStruct validates a struct using the validator instance
func ValidateStruct(validate *validator.Validate, s interface{}) []string {
	var errors []string

	if err := validate.Struct(s); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []string{err.Error()}
		}
		for _, err := range verrs {
			errors = append(errors, formatValidationError(err))
		}
	}

	return errors
}

// formatValidationError formats validation errors for user-friendly messages
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
	case "clan_name":
		return fmt.Sprintf("%s must be 3-16 letters, digits or underscores", err.Field())
	default:
		return fmt.Sprintf("%s is invalid", err.Field())
	}
}
