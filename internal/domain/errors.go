package domain

import "errors"

var (
	// Not-found errors.
	ErrUserNotFound     = errors.New("user not found")
	ErrBugNotFound      = errors.New("bug not found")
	ErrTestCaseNotFound = errors.New("test case not found")

	// Business-rule errors.
	ErrNotOwner           = errors.New("only the creator may modify this record")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrAlreadyLinked      = errors.New("bug already linked to this test case")
	ErrNotLinked          = errors.New("bug is not linked to this test case")

	// ErrAIDisabled is distinct from transport failures so callers can
	// prompt the user to configure AI instead of retrying.
	ErrAIDisabled = errors.New("AI功能未启用")
)

// ValidationError carries per-field form validation messages. It is
// reported back to the submitter and never persisted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	for field, msg := range e.Fields {
		return field + ": " + msg
	}
	return "validation failed"
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
