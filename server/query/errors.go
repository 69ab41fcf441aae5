package query

import "github.com/tablekit/tablekit/pkg/errors"

// Package-specific error codes for query building and execution
var (
	ErrValidationFailed    = errors.MustNewCode("query.validation_failed")
	ErrInvalidDirection    = errors.MustNewCode("query.invalid_direction")
	ErrInvalidFilter       = errors.MustNewCode("query.invalid_filter")
	ErrInvalidValue        = errors.MustNewCode("query.invalid_value")
	ErrEmptyProperties     = errors.MustNewCode("query.empty_properties")
	ErrExecutionFailed     = errors.MustNewCode("query.execution_failed")
	ErrConstraintViolation = errors.MustNewCode("query.constraint_violation")
	ErrScanFailed          = errors.MustNewCode("query.scan_failed")
)

func newValidationError(format string, args ...any) error {
	return errors.Newf(ErrValidationFailed, format, args...)
}
