package errors

import (
	"fmt"
	"strings"
)

// IsTablekitError reports whether err is our Error type.
func IsTablekitError(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// GetContext extracts the context map from our errors, nil otherwise.
func GetContext(err error) map[string]string {
	if tkErr, ok := err.(*Error); ok {
		return tkErr.Context
	}
	return nil
}

// GetCode returns the error code string, empty for foreign errors.
func GetCode(err error) string {
	if tkErr, ok := err.(*Error); ok {
		return tkErr.Code.String()
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if tkErr, ok := err.(*Error); ok {
		return tkErr.Code.Equals(code)
	}
	return false
}

// FormatError renders an error for logging, including code, context and cause.
func FormatError(err error) string {
	if tkErr, ok := err.(*Error); ok {
		var parts []string
		parts = append(parts, fmt.Sprintf("Code: %s", tkErr.Code))
		parts = append(parts, fmt.Sprintf("Message: %s", tkErr.Message))

		if len(tkErr.Context) > 0 {
			parts = append(parts, "Context:")
			for k, v := range tkErr.Context {
				parts = append(parts, fmt.Sprintf("  %s: %v", k, v))
			}
		}

		if tkErr.Cause != nil {
			parts = append(parts, fmt.Sprintf("Cause: %v", tkErr.Cause))
		}

		return strings.Join(parts, "\n")
	}
	return err.Error()
}

// AsError converts any error to the canonical *Error form.
// InternalError implementations are transformed, existing *Error values are
// returned as-is, and everything else is wrapped as a generic internal error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	if ie, ok := err.(InternalError); ok {
		return ie.Transform()
	}

	if internalErr, ok := err.(*Error); ok {
		return internalErr
	}

	return New(CommonInternal, err.Error(), err)
}
