// Package validation orchestrates the bus: validate, decide, persist, then
// elect the golden record for the touched group under its lock.
package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"veritas/internal/audit"
	"veritas/internal/caller"
	"veritas/internal/grouplock"
	"veritas/internal/validation/decision"
	"veritas/internal/validation/election"
	"veritas/internal/validation/metrics"
	"veritas/internal/validation/models"
	"veritas/internal/validation/rules"
	"veritas/internal/validation/store"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/requestcontext"
)

// TierDirectory resolves application trust tiers for election scoring.
type TierDirectory interface {
	TierFor(ctx context.Context, name string) caller.Tier
}

// Service is the validation orchestrator.
type Service struct {
	validators *rules.Registry
	engine     *decision.Engine
	records    store.RecordStore
	tiers      TierDirectory
	locks      grouplock.Locker
	audit      *audit.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Options struct {
	Validators *rules.Registry
	Engine     *decision.Engine
	Records    store.RecordStore
	Tiers      TierDirectory
	Locks      grouplock.Locker
	Audit      *audit.Publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Tracer     trace.Tracer
}

func NewService(opts Options) *Service {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("veritas/validation")
	}
	return &Service{
		validators: opts.Validators,
		engine:     opts.Engine,
		records:    opts.Records,
		tiers:      opts.Tiers,
		locks:      opts.Locks,
		audit:      opts.Audit,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		tracer:     tracer,
	}
}

// SubmitInput is one validation request from an authenticated caller.
type SubmitInput struct {
	Type             models.ValidationType
	Raw              string
	Address          *models.AddressInput
	ClientIdentifier string
	Caller           *caller.Caller
}

// SubmitOutput reports the stored record, the ancillary actions taken and
// the group's golden record after election (nil when the group elected
// nothing).
type SubmitOutput struct {
	Record  *models.ValidationRecord
	Actions decision.Actions
	Golden  *models.ValidationRecord
}

// Submit runs the full pipeline for one value. The submission itself never
// fails on election trouble: a failed election is logged and audited while
// the recorded verdict is returned.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitOutput, error) {
	ctx, span := s.tracer.Start(ctx, "validation.submit")
	defer span.End()
	span.SetAttributes(attribute.String("validation.type", string(in.Type)))

	if in.Caller == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated caller")
	}
	validator, ok := s.validators.For(in.Type)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported validation type %q", in.Type)
	}

	now := requestcontext.RequestTime(ctx)
	result := validator.Validate(ctx, rules.Input{Raw: in.Raw, Address: in.Address})
	s.metrics.IncValidation(string(in.Type), result.Valid)

	rec := &models.ValidationRecord{
		ID:               uuid.New(),
		ValidationType:   in.Type,
		RawValue:         in.Raw,
		NormalizedValue:  result.Normalized,
		IsValid:          result.Valid,
		Message:          result.Message,
		Details:          result.Details,
		Source:           result.Source,
		RuleCode:         result.RuleCode,
		SubmittingApp:    in.Caller.Name,
		ClientIdentifier: in.ClientIdentifier,
		RequestID:        requestcontext.RequestID(ctx),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	actions := s.engine.Apply(ctx, rec, in.Caller, now)
	if actions.SoftDeleted {
		s.metrics.IncSoftDelete("auto")
	}
	if actions.DuplicateFound {
		s.metrics.IncDuplicateFound()
	}

	out := &SubmitOutput{Record: rec, Actions: actions}

	groupKey := rec.GroupKey()
	if groupKey == "" || rec.IsDeleted {
		// No election to run: either normalization failed or the record
		// was parked deleted on arrival.
		if err := s.records.Create(ctx, rec); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting validation record")
		}
		// The group stands as it was, but the response still reports
		// its current golden record.
		if groupKey != "" {
			if golden, err := s.Golden(ctx, rec.NormalizedValue, rec.ValidationType); err == nil {
				out.Golden = golden
			}
		}
	} else {
		err := s.locks.WithLock(ctx, groupKey, func(ctx context.Context) error {
			if err := s.records.Create(ctx, rec); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "persisting validation record")
			}
			out.Golden = s.electLocked(ctx, rec.NormalizedValue, rec.ValidationType, rec.ID, in.Caller.Name, now)
			return nil
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrLockNotAcquired) {
				return nil, dErrors.Wrap(err, dErrors.CodeConflict, "validation group is busy, retry")
			}
			return nil, err
		}
		// Pick up election side effects on the stored row.
		if fresh, err := s.records.GetByID(ctx, rec.ID); err == nil {
			out.Record = fresh
		}
	}

	s.logger.InfoContext(ctx, "validation recorded",
		"record_id", rec.ID,
		"type", rec.ValidationType,
		"valid", rec.IsValid,
		"rule_code", rec.RuleCode,
		"app", in.Caller.Name,
	)
	s.audit.Emit(ctx, audit.Event{
		Action:         audit.ActionValidationRecorded,
		App:            in.Caller.Name,
		RecordID:       &rec.ID,
		ValidationType: string(rec.ValidationType),
		GroupKey:       groupKey,
		Decision:       rec.RuleCode,
		Reason:         rec.Message,
		RequestID:      requestcontext.RequestID(ctx),
	})

	return out, nil
}

// Get loads one record by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ValidationRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "validation record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading validation record")
	}
	return rec, nil
}

// History lists recent records, newest first.
func (s *Service) History(ctx context.Context, filter store.ListFilter) ([]*models.ValidationRecord, error) {
	recs, err := s.records.ListRecent(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing validation records")
	}
	return recs, nil
}

// SoftDelete removes a record from its group and re-elects. Requires the
// delete permission.
func (s *Service) SoftDelete(ctx context.Context, c *caller.Caller, id uuid.UUID) (*models.ValidationRecord, error) {
	ctx, span := s.tracer.Start(ctx, "validation.soft_delete")
	defer span.End()

	if c == nil || !c.CanDeleteRecords {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller may not delete records")
	}

	now := requestcontext.RequestTime(ctx)

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var deleted *models.ValidationRecord
	err = s.withGroupLock(ctx, current, func(ctx context.Context) error {
		var err error
		deleted, err = s.records.SoftDelete(ctx, id, now)
		if err != nil {
			return err
		}
		if key := current.GroupKey(); key != "" {
			s.electLocked(ctx, current.NormalizedValue, current.ValidationType, uuid.Nil, c.Name, now)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyDeleted):
			return nil, dErrors.New(dErrors.CodeConflict, "record is already deleted")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "validation record not found")
		case errors.Is(err, sentinel.ErrLockNotAcquired):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "validation group is busy, retry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deleting validation record")
	}

	s.metrics.IncSoftDelete("manual")
	s.logger.InfoContext(ctx, "record soft-deleted", "record_id", id, "app", c.Name)
	s.audit.Emit(ctx, audit.Event{
		Action:         audit.ActionRecordSoftDeleted,
		App:            c.Name,
		RecordID:       &id,
		ValidationType: string(current.ValidationType),
		GroupKey:       current.GroupKey(),
		RequestID:      requestcontext.RequestID(ctx),
	})
	return deleted, nil
}

// Restore brings a soft-deleted record back into its group and re-elects.
func (s *Service) Restore(ctx context.Context, c *caller.Caller, id uuid.UUID) (*models.ValidationRecord, error) {
	ctx, span := s.tracer.Start(ctx, "validation.restore")
	defer span.End()

	if c == nil || !c.CanDeleteRecords {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller may not restore records")
	}

	now := requestcontext.RequestTime(ctx)

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var restored *models.ValidationRecord
	err = s.withGroupLock(ctx, current, func(ctx context.Context) error {
		var err error
		restored, err = s.records.Restore(ctx, id, now)
		if err != nil {
			return err
		}
		if key := current.GroupKey(); key != "" {
			s.electLocked(ctx, current.NormalizedValue, current.ValidationType, uuid.Nil, c.Name, now)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotDeleted):
			return nil, dErrors.New(dErrors.CodeConflict, "record is not deleted")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "validation record not found")
		case errors.Is(err, sentinel.ErrLockNotAcquired):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "validation group is busy, retry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "restoring validation record")
	}

	// Re-read to pick up election side effects.
	if fresh, err := s.records.GetByID(ctx, id); err == nil {
		restored = fresh
	}

	s.metrics.IncRestore()
	s.logger.InfoContext(ctx, "record restored", "record_id", id, "app", c.Name)
	s.audit.Emit(ctx, audit.Event{
		Action:         audit.ActionRecordRestored,
		App:            c.Name,
		RecordID:       &id,
		ValidationType: string(current.ValidationType),
		GroupKey:       current.GroupKey(),
		RequestID:      requestcontext.RequestID(ctx),
	})
	return restored, nil
}

// Golden returns the current golden record of a group, or nil.
func (s *Service) Golden(ctx context.Context, normalized string, vt models.ValidationType) (*models.ValidationRecord, error) {
	group, err := s.records.ListGroup(ctx, normalized, vt, false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading validation group")
	}
	for _, rec := range group {
		if rec.IsGolden {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *Service) withGroupLock(ctx context.Context, rec *models.ValidationRecord, fn func(ctx context.Context) error) error {
	key := rec.GroupKey()
	if key == "" {
		return fn(ctx)
	}
	return s.locks.WithLock(ctx, key, fn)
}

// electLocked recomputes the golden record for a group. Callers must hold
// the group lock. Failures never propagate: the mutation that triggered the
// election has already been persisted, so trouble here is logged, audited
// and counted instead.
func (s *Service) electLocked(ctx context.Context, normalized string, vt models.ValidationType, justCreated uuid.UUID, app string, now time.Time) *models.ValidationRecord {
	ctx, span := s.tracer.Start(ctx, "validation.elect")
	defer span.End()
	started := time.Now()

	group, err := s.records.ListGroup(ctx, normalized, vt, false)
	if err != nil {
		s.electionFailed(ctx, normalized, vt, app, err)
		return nil
	}

	var prevWinner *uuid.UUID
	tiers := make(map[string]caller.Tier, len(group))
	for _, rec := range group {
		if rec.IsGolden {
			id := rec.ID
			prevWinner = &id
		}
		if _, seen := tiers[rec.SubmittingApp]; !seen {
			tiers[rec.SubmittingApp] = s.tiers.TierFor(ctx, rec.SubmittingApp)
		}
	}

	outcome := election.Elect(group, tiers, now, justCreated)

	if err := s.records.ApplyElection(ctx, normalized, vt, outcome.WinnerID, now); err != nil {
		s.electionFailed(ctx, normalized, vt, app, err)
		return nil
	}

	s.metrics.ObserveElection(time.Since(started))
	if outcome.WinnerID == nil {
		s.metrics.IncElection("none")
	} else {
		s.metrics.IncElection("elected")
	}

	changed := (prevWinner == nil) != (outcome.WinnerID == nil) ||
		(prevWinner != nil && outcome.WinnerID != nil && *prevWinner != *outcome.WinnerID)
	if changed {
		s.metrics.IncGoldenFlip()
		s.logger.InfoContext(ctx, "golden record changed",
			"group", models.GroupKey(normalized, vt),
			"winner", outcome.WinnerID,
		)
		s.audit.Emit(ctx, audit.Event{
			Action:         audit.ActionGoldenElected,
			App:            app,
			RecordID:       outcome.WinnerID,
			ValidationType: string(vt),
			GroupKey:       models.GroupKey(normalized, vt),
			RequestID:      requestcontext.RequestID(ctx),
		})
	}

	if outcome.WinnerID == nil {
		return nil
	}
	winner, err := s.records.GetByID(ctx, *outcome.WinnerID)
	if err != nil {
		return nil
	}
	return winner
}

func (s *Service) electionFailed(ctx context.Context, normalized string, vt models.ValidationType, app string, err error) {
	s.metrics.IncElection("failed")
	s.logger.ErrorContext(ctx, "golden record election failed",
		"group", models.GroupKey(normalized, vt),
		"error", err,
	)
	s.audit.Emit(ctx, audit.Event{
		Action:         audit.ActionElectionFailed,
		App:            app,
		ValidationType: string(vt),
		GroupKey:       models.GroupKey(normalized, vt),
		Reason:         err.Error(),
		RequestID:      requestcontext.RequestID(ctx),
	})
}
