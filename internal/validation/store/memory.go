package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"veritas/internal/validation/models"
	"veritas/pkg/platform/sentinel"
)

// Memory keeps records in a map guarded by a RWMutex. Records are cloned on
// the way in and out so callers never share mutable state with the store.
type Memory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.ValidationRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[uuid.UUID]*models.ValidationRecord)}
}

func (m *Memory) Create(_ context.Context, record *models.ValidationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record.Clone()
	return nil
}

func (m *Memory) GetByID(_ context.Context, id uuid.UUID) (*models.ValidationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) ListRecent(_ context.Context, filter ListFilter) ([]*models.ValidationRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	var out []*models.ValidationRecord
	for _, rec := range m.records {
		if filter.App != "" && rec.SubmittingApp != filter.App {
			continue
		}
		if filter.Type != "" && rec.ValidationType != filter.Type {
			continue
		}
		if !filter.IncludeDeleted && rec.IsDeleted {
			continue
		}
		out = append(out, rec.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListGroup(_ context.Context, normalized string, vt models.ValidationType, includeDeleted bool) ([]*models.ValidationRecord, error) {
	m.mu.RLock()
	var out []*models.ValidationRecord
	for _, rec := range m.records {
		if rec.NormalizedValue != normalized || rec.ValidationType != vt {
			continue
		}
		if !includeDeleted && rec.IsDeleted {
			continue
		}
		out = append(out, rec.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) FindDuplicate(_ context.Context, normalized string, vt models.ValidationType, exclude uuid.UUID) (*models.ValidationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *models.ValidationRecord
	for _, rec := range m.records {
		if rec.ID == exclude || rec.IsDeleted {
			continue
		}
		if rec.NormalizedValue != normalized || rec.ValidationType != vt {
			continue
		}
		if best == nil || rec.CreatedAt.After(best.CreatedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return best.Clone(), nil
}

func (m *Memory) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) (*models.ValidationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.IsDeleted {
		return nil, sentinel.ErrAlreadyDeleted
	}

	rec.IsDeleted = true
	rec.DeletedAt = &at
	rec.IsGolden = false
	rec.GoldenRecordID = nil
	rec.UpdatedAt = at
	return rec.Clone(), nil
}

func (m *Memory) Restore(_ context.Context, id uuid.UUID, at time.Time) (*models.ValidationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !rec.IsDeleted {
		return nil, sentinel.ErrNotDeleted
	}

	rec.IsDeleted = false
	rec.DeletedAt = nil
	rec.UpdatedAt = at
	return rec.Clone(), nil
}

func (m *Memory) ApplyElection(_ context.Context, normalized string, vt models.ValidationType, winnerID *uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.NormalizedValue != normalized || rec.ValidationType != vt || rec.IsDeleted {
			continue
		}
		rec.IsGolden = winnerID != nil && rec.ID == *winnerID
		if winnerID != nil {
			id := *winnerID
			rec.GoldenRecordID = &id
		} else {
			rec.GoldenRecordID = nil
		}
		rec.UpdatedAt = at
	}
	return nil
}
