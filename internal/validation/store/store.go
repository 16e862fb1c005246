// Package store persists validation records. The memory implementation
// backs development and tests; postgres is the production path. Both honor
// the same sentinel contract so the service layer stays storage-agnostic.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"veritas/internal/validation/models"
)

// ListFilter narrows history queries.
type ListFilter struct {
	// App restricts results to one submitting application; empty means all.
	App string
	// Type restricts results to one validation type; empty means all.
	Type models.ValidationType
	// IncludeDeleted keeps soft-deleted records in the result.
	IncludeDeleted bool
	// Limit caps the result size; non-positive falls back to a default.
	Limit int
}

// DefaultListLimit bounds history responses when the caller does not.
const DefaultListLimit = 50

// RecordStore is the validation record repository.
type RecordStore interface {
	// Create persists a new record.
	Create(ctx context.Context, record *models.ValidationRecord) error
	// GetByID loads one record, deleted or not. Missing records return
	// sentinel.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.ValidationRecord, error)
	// ListRecent returns records matching the filter, newest first.
	ListRecent(ctx context.Context, filter ListFilter) ([]*models.ValidationRecord, error)
	// ListGroup returns all members of an election group ordered by
	// creation time, optionally including soft-deleted members.
	ListGroup(ctx context.Context, normalized string, vt models.ValidationType, includeDeleted bool) ([]*models.ValidationRecord, error)
	// FindDuplicate returns the most recent live record sharing the
	// normalized value, excluding the given ID, or sentinel.ErrNotFound.
	FindDuplicate(ctx context.Context, normalized string, vt models.ValidationType, exclude uuid.UUID) (*models.ValidationRecord, error)
	// SoftDelete marks a record deleted. Missing records return
	// sentinel.ErrNotFound; already-deleted ones sentinel.ErrAlreadyDeleted.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (*models.ValidationRecord, error)
	// Restore clears the deletion flags. Missing records return
	// sentinel.ErrNotFound; live ones sentinel.ErrNotDeleted.
	Restore(ctx context.Context, id uuid.UUID, at time.Time) (*models.ValidationRecord, error)
	// ApplyElection atomically stamps the election outcome onto every
	// live member of the group: the winner gets is_golden, everyone
	// points at the winner (or at nothing when winnerID is nil).
	ApplyElection(ctx context.Context, normalized string, vt models.ValidationType, winnerID *uuid.UUID, at time.Time) error
}
