package common

import (
	"fmt"
	"strings"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Cause   error // optional sentinel surfaced by Err
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Err returns the collected failures as an INVALID_UPLOAD AppError whose
// message is the first failure's client message. The first failure's Cause,
// if any, stays reachable through errors.Is.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	first := v.errors[0]
	cause := fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
	if first.Cause != nil {
		cause = fmt.Errorf("%w: %w: %s", ErrValidation, first.Cause, v.ErrorMessage())
	}
	return NewAppError(CodeInvalidUpload, first.Message, cause)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	}
	return nil
}

// RequiredMsg is Required with a caller-chosen message.
func RequiredMsg(message string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		if err := Required(fieldName, value); err != nil {
			err.Message = message
			return err
		}
		return nil
	}
}

// MaxSize rejects int64 sizes above max; the failure carries ErrTooLarge.
func MaxSize(max int64, message string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		n, ok := value.(int64)
		if !ok {
			return &ValidationError{Field: fieldName, Value: value, Message: "must be a size"}
		}
		if n > max {
			return &ValidationError{Field: fieldName, Value: value, Message: message, Cause: ErrTooLarge}
		}
		return nil
	}
}

// OneOf rejects values whose string form is not in allowed.
func OneOf(allowed func(string) bool, message string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		if !allowed(fmt.Sprint(value)) {
			return &ValidationError{Field: fieldName, Value: value, Message: message}
		}
		return nil
	}
}
