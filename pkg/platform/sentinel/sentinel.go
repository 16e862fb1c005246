package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in store
// - ErrAlreadyDeleted: record is already soft-deleted
// - ErrNotDeleted: record is not soft-deleted, so restore has nothing to do
// - ErrLockNotAcquired: the per-group lock could not be obtained in time
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyDeleted  = errors.New("already deleted")
	ErrNotDeleted      = errors.New("not deleted")
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrUnavailable     = errors.New("unavailable")
)
