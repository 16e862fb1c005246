// Package decision applies business policy to a freshly validated record
// before it is persisted: it stamps the final rule onto the record and runs
// the ancillary actions (automatic soft-delete of invalid data, duplicate
// probe) permitted to the calling application.
package decision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"veritas/internal/caller"
	"veritas/internal/validation/catalog"
	"veritas/internal/validation/models"
	"veritas/pkg/platform/sentinel"
)

// Selection is a policy verdict: the rule to stamp and its parameters.
type Selection struct {
	Code       string
	Parameters map[string]any
}

// Policy inspects a record and its caller. Policies are consulted in
// registration order; the first match wins.
type Policy interface {
	Name() string
	Evaluate(rec *models.ValidationRecord, c *caller.Caller) (Selection, bool)
}

// DuplicateFinder is the slice of the record store the engine needs.
type DuplicateFinder interface {
	FindDuplicate(ctx context.Context, normalized string, vt models.ValidationType, exclude uuid.UUID) (*models.ValidationRecord, error)
}

// Actions summarizes what the engine did beyond rule stamping.
type Actions struct {
	SoftDeleted       bool
	DuplicateChecked  bool
	DuplicateFound    bool
	DuplicateRecordID *uuid.UUID
	// DuplicateError carries a failed probe without failing the request;
	// ancillary actions are best-effort.
	DuplicateError string
}

// Engine is the rule and action applier.
type Engine struct {
	catalog  *catalog.Catalog
	policies []Policy
	store    DuplicateFinder
	logger   *slog.Logger
}

func NewEngine(cat *catalog.Catalog, store DuplicateFinder, logger *slog.Logger, policies ...Policy) *Engine {
	return &Engine{catalog: cat, policies: policies, store: store, logger: logger}
}

// Apply mutates the unsaved record: rule fields always, deletion flags when
// the auto soft-delete fires. The caller persists the record afterwards.
func (e *Engine) Apply(ctx context.Context, rec *models.ValidationRecord, c *caller.Caller, now time.Time) Actions {
	e.stampRule(ctx, rec, c)

	var actions Actions

	// Invalid data from an app allowed to delete records is parked as
	// soft-deleted immediately, keeping it out of elections while
	// preserving the submission.
	if !rec.IsValid && c.CanDeleteRecords {
		rec.IsDeleted = true
		rec.DeletedAt = &now
		actions.SoftDeleted = true
		e.logger.InfoContext(ctx, "auto soft-delete applied",
			"record_id", rec.ID, "app", c.Name, "rule_code", rec.RuleCode)
	}

	// Only valid records are probed: an invalid submission is not a
	// duplicate of anything, it is a rejected value.
	if rec.IsValid && c.CanCheckDuplicates && rec.NormalizedValue != "" {
		actions.DuplicateChecked = true
		dup, err := e.store.FindDuplicate(ctx, rec.NormalizedValue, rec.ValidationType, rec.ID)
		switch {
		case err == nil:
			actions.DuplicateFound = true
			id := dup.ID
			actions.DuplicateRecordID = &id
		case errors.Is(err, sentinel.ErrNotFound):
			// No duplicate; nothing to report.
		default:
			// A failed probe must not fail the validation.
			actions.DuplicateError = err.Error()
			e.logger.WarnContext(ctx, "duplicate probe failed",
				"record_id", rec.ID, "error", err)
		}
	}

	return actions
}

// stampRule finalizes the record's rule fields: a matching policy overrides
// the validator's code; unknown codes fall back to the default rule.
func (e *Engine) stampRule(ctx context.Context, rec *models.ValidationRecord, c *caller.Caller) {
	for _, p := range e.policies {
		sel, ok := p.Evaluate(rec, c)
		if !ok {
			continue
		}
		entry, known := e.catalog.Lookup(sel.Code)
		if !known {
			e.logger.ErrorContext(ctx, "policy selected unknown rule code",
				"policy", p.Name(), "code", sel.Code)
			continue
		}
		rec.RuleCode = entry.Code
		rec.RuleDescription = entry.Description
		rec.RuleType = entry.Category
		rec.RuleParameters = sel.Parameters
		return
	}

	entry, known := e.catalog.Lookup(rec.RuleCode)
	if !known {
		entry = e.catalog.Default()
	}
	rec.RuleCode = entry.Code
	rec.RuleDescription = entry.Description
	rec.RuleType = entry.Category
}
