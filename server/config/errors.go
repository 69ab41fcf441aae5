package config

import "github.com/tablekit/tablekit/pkg/errors"

// Package-specific error codes for configuration handling
var (
	ErrConfigFileReadFailed       = errors.MustNewCode("config.file_read_failed")
	ErrConfigFileParseFailed      = errors.MustNewCode("config.file_parse_failed")
	ErrConfigFileWriteFailed      = errors.MustNewCode("config.file_write_failed")
	ErrConfigValidationFailed     = errors.MustNewCode("config.validation_failed")
	ErrLogDirectoryCreationFailed = errors.MustNewCode("config.log_directory_creation_failed")
	ErrLogFileOpenFailed          = errors.MustNewCode("config.log_file_open_failed")
	ErrLogFilePathRequired        = errors.MustNewCode("config.log_file_path_required")
	ErrLogFileStatFailed          = errors.MustNewCode("config.log_file_stat_failed")
	ErrLogRotationFailed          = errors.MustNewCode("config.log_rotation_failed")
	ErrLogRotationCheckFailed     = errors.MustNewCode("config.log_rotation_check_failed")
	ErrLogBackupReadFailed        = errors.MustNewCode("config.log_backup_read_failed")
	ErrLogBackupRemoveFailed      = errors.MustNewCode("config.log_backup_remove_failed")
	ErrLogCleanupFailed           = errors.MustNewCode("config.log_cleanup_failed")
	ErrLogFileWriterSetupFailed   = errors.MustNewCode("config.log_file_writer_setup_failed")
)
