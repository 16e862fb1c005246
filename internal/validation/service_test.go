package validation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"veritas/internal/audit"
	"veritas/internal/caller"
	"veritas/internal/grouplock"
	"veritas/internal/validation/catalog"
	"veritas/internal/validation/decision"
	"veritas/internal/validation/models"
	"veritas/internal/validation/refdata"
	"veritas/internal/validation/rules"
	"veritas/internal/validation/store"
	dErrors "veritas/pkg/domain-errors"
)

type testStack struct {
	service   *Service
	records   store.RecordStore
	sink      *audit.MemorySink
	callers   map[string]*caller.Caller
	callerSvc *caller.Service
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	return newTestStackWithStore(t, store.NewMemory())
}

func newTestStackWithStore(t *testing.T, records store.RecordStore) *testStack {
	t.Helper()

	logger := slog.Default()
	dir := refdata.NewStatic()

	registry := rules.NewRegistry(
		rules.NewPhoneValidator(dir, "BR"),
		rules.NewTaxIDValidator(dir),
		rules.NewEmailValidator(dir, map[string]struct{}{"mailinator.com": {}}, nil),
		rules.NewPostalCodeValidator(dir),
		rules.NewAddressValidator(dir, rules.NewPostalCodeValidator(dir)),
	)

	engine := decision.NewEngine(catalog.New(), records, logger,
		decision.NewPhoneCompliancePolicy(map[string]struct{}{"crm_app": {}}),
		decision.NewPostalEnrichmentPolicy(),
	)

	callerStore := caller.NewMemoryStore(caller.BuildCredentials(caller.DevSeed(), time.Now())...)
	callerSvc := caller.NewService(callerStore, logger)

	sink := audit.NewMemorySink()
	inbox := make(chan audit.Event, 64)
	worker := audit.NewWorker(sink, inbox, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = worker.Run(ctx) }()

	svc := NewService(Options{
		Validators: registry,
		Engine:     engine,
		Records:    records,
		Tiers:      callerSvc,
		Locks:      grouplock.NewMemoryLocker(),
		Audit:      audit.NewPublisher(inbox, logger),
		Logger:     logger,
	})

	callers := make(map[string]*caller.Caller)
	for _, name := range []string{"crm_app", "ecommerce_front", "legacy_batch"} {
		c, err := callerSvc.LookupByName(context.Background(), name)
		require.NoError(t, err)
		callers[name] = c
	}

	return &testStack{service: svc, records: records, sink: sink, callers: callers, callerSvc: callerSvc}
}

func (ts *testStack) waitForAudit(t *testing.T, action string) audit.Event {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, e := range ts.sink.Events() {
			if e.Action == action {
				return e
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no audit event with action %q", action)
	return audit.Event{}
}

func TestSubmitPostalCode(t *testing.T) {
	ts := newTestStack(t)

	out, err := ts.service.Submit(context.Background(), SubmitInput{
		Type:   models.TypePostalCode,
		Raw:    "01001-000",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	rec := out.Record
	assert.True(t, rec.IsValid)
	assert.Equal(t, "01001000", rec.NormalizedValue)
	// system_of_record caller gets the enrichment rule.
	assert.Equal(t, catalog.CodeCepEnrichment, rec.RuleCode)
	assert.True(t, out.Actions.DuplicateChecked)
	assert.False(t, out.Actions.DuplicateFound)

	require.NotNil(t, out.Golden)
	assert.Equal(t, rec.ID, out.Golden.ID)
	assert.True(t, rec.IsGolden)

	ts.waitForAudit(t, audit.ActionValidationRecorded)
	ts.waitForAudit(t, audit.ActionGoldenElected)
}

func TestGoldenFlipsToHigherTier(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	first, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "maria@gmail.com",
		Caller: ts.callers["legacy_batch"],
	})
	require.NoError(t, err)
	require.NotNil(t, first.Golden)
	assert.Equal(t, first.Record.ID, first.Golden.ID)

	second, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "MARIA@gmail.com",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)
	require.NotNil(t, second.Golden)
	assert.Equal(t, second.Record.ID, second.Golden.ID)

	// The losing record now points at the new golden.
	loser, err := ts.service.Get(ctx, first.Record.ID)
	require.NoError(t, err)
	assert.False(t, loser.IsGolden)
	require.NotNil(t, loser.GoldenRecordID)
	assert.Equal(t, second.Record.ID, *loser.GoldenRecordID)
}

func TestDuplicateProbeOnSecondSubmission(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	first, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypePhone,
		Raw:    "(11) 98380-2243",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	second, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypePhone,
		Raw:    "+55 11 98380-2243",
		Caller: ts.callers["ecommerce_front"],
	})
	require.NoError(t, err)

	assert.True(t, second.Actions.DuplicateChecked)
	assert.True(t, second.Actions.DuplicateFound)
	require.NotNil(t, second.Actions.DuplicateRecordID)
	assert.Equal(t, first.Record.ID, *second.Actions.DuplicateRecordID)
}

func TestInvalidAutoSoftDeleted(t *testing.T) {
	ts := newTestStack(t)

	out, err := ts.service.Submit(context.Background(), SubmitInput{
		Type:   models.TypePhone,
		Raw:    "123",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	assert.False(t, out.Record.IsValid)
	assert.True(t, out.Actions.SoftDeleted)
	assert.True(t, out.Record.IsDeleted)
	assert.Nil(t, out.Golden)
}

func TestAutoDeletedSubmissionReportsGroupGolden(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	// legacy_batch cannot soft-delete, so its invalid record stays live
	// and holds golden as the group's only member.
	first, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeTaxID,
		Raw:    "529.982.247-25",
		Caller: ts.callers["legacy_batch"],
	})
	require.NoError(t, err)
	require.NotNil(t, first.Golden)

	// crm_app's copy is parked deleted on arrival and never touches the
	// election, but the response still reports the standing golden.
	second, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeTaxID,
		Raw:    "529.982.247-25",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	assert.True(t, second.Actions.SoftDeleted)
	assert.True(t, second.Record.IsDeleted)
	require.NotNil(t, second.Golden)
	assert.Equal(t, first.Record.ID, second.Golden.ID)
}

func TestSoleInvalidWithoutDeletePermissionBecomesGolden(t *testing.T) {
	ts := newTestStack(t)

	// Suspended CPF: invalid but normalizable; legacy_batch cannot
	// soft-delete, so the record stays live as its group's only member.
	out, err := ts.service.Submit(context.Background(), SubmitInput{
		Type:   models.TypeTaxID,
		Raw:    "529.982.247-25",
		Caller: ts.callers["legacy_batch"],
	})
	require.NoError(t, err)

	assert.False(t, out.Record.IsValid)
	assert.False(t, out.Record.IsDeleted)
	require.NotNil(t, out.Golden)
	assert.Equal(t, out.Record.ID, out.Golden.ID)
}

func TestResubmissionByStrongerTierTakesGolden(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	first, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeTaxID,
		Raw:    "111.444.777-35",
		Caller: ts.callers["legacy_batch"],
	})
	require.NoError(t, err)

	second, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeTaxID,
		Raw:    "111.444.777-35",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	require.NotNil(t, second.Golden)
	assert.True(t, second.Golden.IsValid)
	assert.Equal(t, second.Record.ID, second.Golden.ID)
	assert.NotEqual(t, first.Record.ID, second.Golden.ID)
}

func TestDeleteGoldenReelectsAndRestoreFlipsBack(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	legacy, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "carlos@uol.com.br",
		Caller: ts.callers["legacy_batch"],
	})
	require.NoError(t, err)

	crm, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "carlos@uol.com.br",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)
	require.NotNil(t, crm.Golden)
	require.Equal(t, crm.Record.ID, crm.Golden.ID)

	// Deleting the golden hands the crown to the survivor.
	_, err = ts.service.SoftDelete(ctx, ts.callers["crm_app"], crm.Record.ID)
	require.NoError(t, err)

	golden, err := ts.service.Golden(ctx, "carlos@uol.com.br", models.TypeEmail)
	require.NoError(t, err)
	require.NotNil(t, golden)
	assert.Equal(t, legacy.Record.ID, golden.ID)

	// Restoring flips it back to the stronger tier.
	restored, err := ts.service.Restore(ctx, ts.callers["crm_app"], crm.Record.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsGolden)

	golden, err = ts.service.Golden(ctx, "carlos@uol.com.br", models.TypeEmail)
	require.NoError(t, err)
	require.NotNil(t, golden)
	assert.Equal(t, crm.Record.ID, golden.ID)
}

func TestDeleteLastMemberLeavesNoGolden(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	out, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypePostalCode,
		Raw:    "20040-003",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	_, err = ts.service.SoftDelete(ctx, ts.callers["crm_app"], out.Record.ID)
	require.NoError(t, err)

	golden, err := ts.service.Golden(ctx, "20040003", models.TypePostalCode)
	require.NoError(t, err)
	assert.Nil(t, golden)
}

func TestDeleteRequiresPermission(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	out, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "x@gmail.com",
		Caller: ts.callers["ecommerce_front"],
	})
	require.NoError(t, err)

	_, err = ts.service.SoftDelete(ctx, ts.callers["ecommerce_front"], out.Record.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = ts.service.Restore(ctx, ts.callers["legacy_batch"], out.Record.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestDeleteTwiceConflicts(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	out, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "x@gmail.com",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	_, err = ts.service.SoftDelete(ctx, ts.callers["crm_app"], out.Record.ID)
	require.NoError(t, err)

	_, err = ts.service.SoftDelete(ctx, ts.callers["crm_app"], out.Record.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRestoreLiveRecordConflicts(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	out, err := ts.service.Submit(ctx, SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "x@gmail.com",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)

	_, err = ts.service.Restore(ctx, ts.callers["crm_app"], out.Record.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestUnknownRecordNotFound(t *testing.T) {
	ts := newTestStack(t)

	_, err := ts.service.SoftDelete(context.Background(), ts.callers["crm_app"], uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestConcurrentSubmissionsKeepOneGolden(t *testing.T) {
	ts := newTestStack(t)
	apps := []string{"crm_app", "ecommerce_front", "legacy_batch"}

	var g errgroup.Group
	for i := 0; i < 12; i++ {
		app := apps[i%len(apps)]
		g.Go(func() error {
			_, err := ts.service.Submit(context.Background(), SubmitInput{
				Type:   models.TypeTaxID,
				Raw:    "111.444.777-35",
				Caller: ts.callers[app],
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	group, err := ts.records.ListGroup(context.Background(), "11144477735", models.TypeTaxID, false)
	require.NoError(t, err)
	require.Len(t, group, 12)

	goldenCount := 0
	var goldenID uuid.UUID
	for _, rec := range group {
		if rec.IsGolden {
			goldenCount++
			goldenID = rec.ID
		}
	}
	require.Equal(t, 1, goldenCount, "exactly one golden record per group")

	for _, rec := range group {
		require.NotNil(t, rec.GoldenRecordID)
		assert.Equal(t, goldenID, *rec.GoldenRecordID)
	}
}

type electionFailingStore struct {
	store.RecordStore
}

func (s electionFailingStore) ApplyElection(context.Context, string, models.ValidationType, *uuid.UUID, time.Time) error {
	return errors.New("disk on fire")
}

func TestElectionFailureDoesNotFailSubmission(t *testing.T) {
	ts := newTestStackWithStore(t, electionFailingStore{store.NewMemory()})

	out, err := ts.service.Submit(context.Background(), SubmitInput{
		Type:   models.TypeEmail,
		Raw:    "x@gmail.com",
		Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)
	assert.True(t, out.Record.IsValid)
	assert.Nil(t, out.Golden)

	event := ts.waitForAudit(t, audit.ActionElectionFailed)
	assert.Contains(t, event.Reason, "disk on fire")
}

func TestHistoryFilters(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	_, err := ts.service.Submit(ctx, SubmitInput{
		Type: models.TypeEmail, Raw: "a@gmail.com", Caller: ts.callers["crm_app"],
	})
	require.NoError(t, err)
	_, err = ts.service.Submit(ctx, SubmitInput{
		Type: models.TypePostalCode, Raw: "01001000", Caller: ts.callers["ecommerce_front"],
	})
	require.NoError(t, err)

	all, err := ts.service.History(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	crmOnly, err := ts.service.History(ctx, store.ListFilter{App: "crm_app"})
	require.NoError(t, err)
	require.Len(t, crmOnly, 1)
	assert.Equal(t, models.TypeEmail, crmOnly[0].ValidationType)
}

func TestUnsupportedType(t *testing.T) {
	ts := newTestStack(t)

	_, err := ts.service.Submit(context.Background(), SubmitInput{
		Type:   models.ValidationType("dna"),
		Raw:    "ACGT",
		Caller: ts.callers["crm_app"],
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
