package portfolio

import "errors"

// ValidationError reports malformed or policy-violating input. Field names
// the offending field; it is empty when the error concerns the whole payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrNotFound signals that an entity is missing or not owned by the caller.
// Ownership violations are deliberately reported as not-found so the API
// never discloses which ids exist.
var ErrNotFound = errors.New("not found")
