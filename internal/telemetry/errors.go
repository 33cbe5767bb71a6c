package telemetry

import "codeberg.org/vireo/motiongov/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Collection Errors
	ErrSnapshotRecord   = errors.ErrorCode("telemetry_snapshot_record_failed")
	ErrInvalidSnapshot  = errors.ErrorCode("telemetry_invalid_snapshot")
	ErrOperationTimeout = errors.ErrorCode("telemetry_operation_timeout")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit   = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageClose  = errors.ErrorCode("telemetry_storage_close_failed")

	// Operation Errors
	ErrServiceShutdown = errors.ErrorCode("telemetry_service_shutdown_failed")
)
