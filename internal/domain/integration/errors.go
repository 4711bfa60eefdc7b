package integration

import "errors"

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrRemoteRequestFailed     = errors.New("integration: remote request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")

	// Run errors
	ErrSyncAlreadyInProgress = errors.New("integration: sync already in progress")
	ErrSyncLockNotHeld       = errors.New("integration: sync lock not held")
	ErrSyncDeadlineExceeded  = errors.New("integration: sync run deadline exceeded")

	// Item errors
	ErrUnsupportedProductType = errors.New("integration: unsupported product type")
	ErrInvalidRemoteOrder     = errors.New("integration: invalid remote order")
)
