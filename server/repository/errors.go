package repository

import "github.com/tablekit/tablekit/pkg/errors"

// Package-specific error codes for repository operations
var (
	ErrParentNotFound  = errors.MustNewCode("repository.parent_not_found")
	ErrPartialCascade  = errors.MustNewCode("repository.partial_cascade")
	ErrUnknownProperty = errors.MustNewCode("repository.unknown_property")
	ErrTxFailed        = errors.MustNewCode("repository.tx_failed")
	ErrSweepFailed     = errors.MustNewCode("repository.sweep_failed")
)
