package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veritas/internal/validation/models"
	"veritas/pkg/platform/sentinel"
)

// RecordStoreSuite runs the store contract against any implementation.
type RecordStoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) RecordStore

	store RecordStore
	ctx   context.Context
	now   time.Time
}

func (s *RecordStoreSuite) SetupTest() {
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *RecordStoreSuite) newRecord(app, normalized string, vt models.ValidationType, valid bool, createdAt time.Time) *models.ValidationRecord {
	return &models.ValidationRecord{
		ID:              uuid.New(),
		ValidationType:  vt,
		RawValue:        normalized,
		NormalizedValue: normalized,
		IsValid:         valid,
		Message:         "test record",
		Details:         map[string]any{"library_confirmed": true},
		Source:          "phone_validator",
		RuleCode:        "RN_TEL001",
		SubmittingApp:   app,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func (s *RecordStoreSuite) TestCreateAndGet() {
	rec := s.newRecord("crm_app", "+5511983802243", models.TypePhone, true, s.now)
	s.Require().NoError(s.store.Create(s.ctx, rec))

	got, err := s.store.GetByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.NormalizedValue, got.NormalizedValue)
	s.Equal(rec.SubmittingApp, got.SubmittingApp)
	s.Equal(true, got.Details["library_confirmed"])
	s.False(got.IsDeleted)
}

func (s *RecordStoreSuite) TestGetMissing() {
	_, err := s.store.GetByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RecordStoreSuite) TestListGroupOrdersByCreation() {
	older := s.newRecord("crm_app", "11144477735", models.TypeTaxID, true, s.now.Add(-time.Hour))
	newer := s.newRecord("ecommerce_front", "11144477735", models.TypeTaxID, true, s.now)
	other := s.newRecord("crm_app", "52998224725", models.TypeTaxID, false, s.now)
	for _, r := range []*models.ValidationRecord{newer, older, other} {
		s.Require().NoError(s.store.Create(s.ctx, r))
	}

	group, err := s.store.ListGroup(s.ctx, "11144477735", models.TypeTaxID, false)
	s.Require().NoError(err)
	s.Require().Len(group, 2)
	s.Equal(older.ID, group[0].ID)
	s.Equal(newer.ID, group[1].ID)
}

func (s *RecordStoreSuite) TestListGroupExcludesDeleted() {
	live := s.newRecord("crm_app", "x@gmail.com", models.TypeEmail, true, s.now.Add(-time.Minute))
	dead := s.newRecord("crm_app", "x@gmail.com", models.TypeEmail, true, s.now)
	s.Require().NoError(s.store.Create(s.ctx, live))
	s.Require().NoError(s.store.Create(s.ctx, dead))
	_, err := s.store.SoftDelete(s.ctx, dead.ID, s.now)
	s.Require().NoError(err)

	group, err := s.store.ListGroup(s.ctx, "x@gmail.com", models.TypeEmail, false)
	s.Require().NoError(err)
	s.Require().Len(group, 1)
	s.Equal(live.ID, group[0].ID)

	all, err := s.store.ListGroup(s.ctx, "x@gmail.com", models.TypeEmail, true)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *RecordStoreSuite) TestFindDuplicate() {
	first := s.newRecord("crm_app", "01001000", models.TypePostalCode, true, s.now.Add(-time.Hour))
	second := s.newRecord("ecommerce_front", "01001000", models.TypePostalCode, true, s.now)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))

	dup, err := s.store.FindDuplicate(s.ctx, "01001000", models.TypePostalCode, second.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, dup.ID)

	_, err = s.store.FindDuplicate(s.ctx, "01001000", models.TypePostalCode, first.ID)
	s.Require().NoError(err)

	_, err = s.store.FindDuplicate(s.ctx, "20040003", models.TypePostalCode, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RecordStoreSuite) TestSoftDeleteLifecycle() {
	rec := s.newRecord("crm_app", "+5511983802243", models.TypePhone, true, s.now)
	s.Require().NoError(s.store.Create(s.ctx, rec))

	deleted, err := s.store.SoftDelete(s.ctx, rec.ID, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.True(deleted.IsDeleted)
	s.Require().NotNil(deleted.DeletedAt)
	s.False(deleted.IsGolden)

	_, err = s.store.SoftDelete(s.ctx, rec.ID, s.now.Add(2*time.Minute))
	s.ErrorIs(err, sentinel.ErrAlreadyDeleted)

	_, err = s.store.SoftDelete(s.ctx, uuid.New(), s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RecordStoreSuite) TestRestoreLifecycle() {
	rec := s.newRecord("crm_app", "+5511983802243", models.TypePhone, true, s.now)
	s.Require().NoError(s.store.Create(s.ctx, rec))

	_, err := s.store.Restore(s.ctx, rec.ID, s.now)
	s.ErrorIs(err, sentinel.ErrNotDeleted)

	_, err = s.store.SoftDelete(s.ctx, rec.ID, s.now.Add(time.Minute))
	s.Require().NoError(err)

	restored, err := s.store.Restore(s.ctx, rec.ID, s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.False(restored.IsDeleted)
	s.Nil(restored.DeletedAt)

	_, err = s.store.Restore(s.ctx, uuid.New(), s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RecordStoreSuite) TestApplyElection() {
	a := s.newRecord("crm_app", "11144477735", models.TypeTaxID, true, s.now.Add(-time.Hour))
	b := s.newRecord("ecommerce_front", "11144477735", models.TypeTaxID, true, s.now)
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))

	s.Require().NoError(s.store.ApplyElection(s.ctx, "11144477735", models.TypeTaxID, &b.ID, s.now))

	gotA, err := s.store.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	gotB, err := s.store.GetByID(s.ctx, b.ID)
	s.Require().NoError(err)

	s.False(gotA.IsGolden)
	s.True(gotB.IsGolden)
	s.Require().NotNil(gotA.GoldenRecordID)
	s.Equal(b.ID, *gotA.GoldenRecordID)
	s.Require().NotNil(gotB.GoldenRecordID)
	s.Equal(b.ID, *gotB.GoldenRecordID)

	// A nil winner clears the group.
	s.Require().NoError(s.store.ApplyElection(s.ctx, "11144477735", models.TypeTaxID, nil, s.now))
	gotB, err = s.store.GetByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.False(gotB.IsGolden)
	s.Nil(gotB.GoldenRecordID)
}

func (s *RecordStoreSuite) TestListRecentFilters() {
	crm := s.newRecord("crm_app", "+5511983802243", models.TypePhone, true, s.now.Add(-time.Hour))
	ecom := s.newRecord("ecommerce_front", "x@gmail.com", models.TypeEmail, true, s.now)
	gone := s.newRecord("crm_app", "01001000", models.TypePostalCode, true, s.now.Add(-time.Minute))
	for _, r := range []*models.ValidationRecord{crm, ecom, gone} {
		s.Require().NoError(s.store.Create(s.ctx, r))
	}
	_, err := s.store.SoftDelete(s.ctx, gone.ID, s.now)
	s.Require().NoError(err)

	all, err := s.store.ListRecent(s.ctx, ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(ecom.ID, all[0].ID) // newest first

	crmOnly, err := s.store.ListRecent(s.ctx, ListFilter{App: "crm_app", IncludeDeleted: true})
	s.Require().NoError(err)
	s.Len(crmOnly, 2)

	emails, err := s.store.ListRecent(s.ctx, ListFilter{Type: models.TypeEmail})
	s.Require().NoError(err)
	s.Require().Len(emails, 1)
	s.Equal(ecom.ID, emails[0].ID)

	limited, err := s.store.ListRecent(s.ctx, ListFilter{Limit: 1, IncludeDeleted: true})
	s.Require().NoError(err)
	s.Len(limited, 1)
}
