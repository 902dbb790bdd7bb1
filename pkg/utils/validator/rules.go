package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagNotBlank = "notblank" // Not empty after trimming whitespace
	TagPhone    = "phone"    // E.164 phone number, optional "whatsapp:" prefix
)

// PhonePrefix is accepted in front of phone numbers.
const PhonePrefix = "whatsapp:"

var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// registerCustomRules registers all custom validation rules.
func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagPhone, validatePhone)
}

// validateNotBlank fails on empty and whitespace-only strings.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validatePhone validates E.164 numbers with or without the WhatsApp prefix.
func validatePhone(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return phoneRegex.MatchString(strings.TrimPrefix(value, PhonePrefix))
}
