package schema

import "github.com/tablekit/tablekit/pkg/errors"

// Package-specific error codes for schema registry operations
var (
	ErrInvalidIdentifier = errors.MustNewCode("schema.invalid_identifier")
	ErrUnknownTable      = errors.MustNewCode("schema.unknown_table")
	ErrUnknownColumn     = errors.MustNewCode("schema.unknown_column")
	ErrTableConflict     = errors.MustNewCode("schema.table_conflict")
	ErrNoFields          = errors.MustNewCode("schema.no_fields")
	ErrUnknownFieldType  = errors.MustNewCode("schema.unknown_field_type")
)
