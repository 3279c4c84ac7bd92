package health

import "errors"

// ValidationError reports bad or missing input. Field is empty when the
// problem is not tied to a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return "invalid " + e.Field + ": " + e.Reason
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
