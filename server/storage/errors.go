package storage

import "github.com/tablekit/tablekit/pkg/errors"

// Package-specific error codes for storage operations
var (
	ErrOpenFailed          = errors.MustNewCode("storage.open_failed")
	ErrPingFailed          = errors.MustNewCode("storage.ping_failed")
	ErrCloseFailed         = errors.MustNewCode("storage.close_failed")
	ErrUnsupportedDriver   = errors.MustNewCode("storage.unsupported_driver")
	ErrMigrationFailed     = errors.MustNewCode("storage.migration_failed")
	ErrSchemaVerification  = errors.MustNewCode("storage.schema_verification_failed")
	ErrEnsureTablesFailed  = errors.MustNewCode("storage.ensure_tables_failed")
	ErrDirectoryCreateFail = errors.MustNewCode("storage.directory_create_failed")
)
