package validator

import "strings"

// FieldError is one translated validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors collects the failures of one validation call.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error joins the translated messages.
func (e *ValidationErrors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Messages returns the translated messages in field order.
func (e *ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return msgs
}

// HasField reports whether field failed validation.
func (e *ValidationErrors) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}
