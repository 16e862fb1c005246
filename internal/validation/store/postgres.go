package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"veritas/internal/validation/models"
	"veritas/pkg/platform/sentinel"
)

// Postgres persists records in the validation_records table with raw SQL;
// squirrel builds the one query whose shape depends on the filter.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const recordColumns = `
	id, validation_type, raw_value, COALESCE(normalized_value, ''),
	is_valid, message, details, source,
	COALESCE(rule_code, ''), COALESCE(rule_description, ''), COALESCE(rule_type, ''), rule_parameters,
	submitting_app, COALESCE(client_identifier, ''), COALESCE(request_id, ''),
	is_deleted, deleted_at, is_golden, golden_record_id,
	created_at, updated_at`

func (p *Postgres) Create(ctx context.Context, record *models.ValidationRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO validation_records (
			id, validation_type, raw_value, normalized_value,
			is_valid, message, details, source,
			rule_code, rule_description, rule_type, rule_parameters,
			submitting_app, client_identifier, request_id,
			is_deleted, deleted_at, is_golden, golden_record_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, NULLIF($4, ''),
			$5, $6, $7, $8,
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12,
			$13, NULLIF($14, ''), NULLIF($15, ''),
			$16, $17, $18, $19,
			$20, $21
		)`,
		record.ID, string(record.ValidationType), record.RawValue, record.NormalizedValue,
		record.IsValid, record.Message, detailsOrEmpty(record.Details), record.Source,
		record.RuleCode, record.RuleDescription, record.RuleType, record.RuleParameters,
		record.SubmittingApp, record.ClientIdentifier, record.RequestID,
		record.IsDeleted, record.DeletedAt, record.IsGolden, record.GoldenRecordID,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting validation record: %w", err)
	}
	return nil
}

func (p *Postgres) GetByID(ctx context.Context, id uuid.UUID) (*models.ValidationRecord, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM validation_records WHERE id = $1`, id)
	return scanRecord(row)
}

func (p *Postgres) ListRecent(ctx context.Context, filter ListFilter) ([]*models.ValidationRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	builder := sq.Select(recordColumns).
		From("validation_records").
		OrderBy("created_at DESC, id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)
	if filter.App != "" {
		builder = builder.Where(sq.Eq{"submitting_app": filter.App})
	}
	if filter.Type != "" {
		builder = builder.Where(sq.Eq{"validation_type": string(filter.Type)})
	}
	if !filter.IncludeDeleted {
		builder = builder.Where(sq.Eq{"is_deleted": false})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building history query: %w", err)
	}
	return p.queryRecords(ctx, query, args...)
}

func (p *Postgres) ListGroup(ctx context.Context, normalized string, vt models.ValidationType, includeDeleted bool) ([]*models.ValidationRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM validation_records
		WHERE normalized_value = $1 AND validation_type = $2`
	if !includeDeleted {
		query += ` AND is_deleted = FALSE`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return p.queryRecords(ctx, query, normalized, string(vt))
}

func (p *Postgres) FindDuplicate(ctx context.Context, normalized string, vt models.ValidationType, exclude uuid.UUID) (*models.ValidationRecord, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM validation_records
		WHERE normalized_value = $1 AND validation_type = $2
		  AND id <> $3 AND is_deleted = FALSE
		ORDER BY created_at DESC
		LIMIT 1`,
		normalized, string(vt), exclude)
	return scanRecord(row)
}

func (p *Postgres) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (*models.ValidationRecord, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE validation_records
		SET is_deleted = TRUE, deleted_at = $2, is_golden = FALSE,
		    golden_record_id = NULL, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING `+recordColumns,
		id, at)
	rec, err := scanRecord(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Distinguish missing from already deleted.
		if _, getErr := p.GetByID(ctx, id); getErr == nil {
			return nil, sentinel.ErrAlreadyDeleted
		}
		return nil, sentinel.ErrNotFound
	}
	return rec, err
}

func (p *Postgres) Restore(ctx context.Context, id uuid.UUID, at time.Time) (*models.ValidationRecord, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE validation_records
		SET is_deleted = FALSE, deleted_at = NULL, updated_at = $2
		WHERE id = $1 AND is_deleted = TRUE
		RETURNING `+recordColumns,
		id, at)
	rec, err := scanRecord(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		if _, getErr := p.GetByID(ctx, id); getErr == nil {
			return nil, sentinel.ErrNotDeleted
		}
		return nil, sentinel.ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ApplyElection(ctx context.Context, normalized string, vt models.ValidationType, winnerID *uuid.UUID, at time.Time) error {
	// IS NOT DISTINCT FROM keeps the statement valid for a nil winner:
	// every member then compares false and loses the golden flag.
	_, err := p.pool.Exec(ctx, `
		UPDATE validation_records
		SET is_golden = (id IS NOT DISTINCT FROM $3),
		    golden_record_id = $3,
		    updated_at = $4
		WHERE normalized_value = $1 AND validation_type = $2 AND is_deleted = FALSE`,
		normalized, string(vt), winnerID, at)
	if err != nil {
		return fmt.Errorf("applying election outcome: %w", err)
	}
	return nil
}

func (p *Postgres) queryRecords(ctx context.Context, query string, args ...any) ([]*models.ValidationRecord, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying validation records: %w", err)
	}
	defer rows.Close()

	var out []*models.ValidationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ValidationRecord, error) {
	var rec models.ValidationRecord
	var vt string
	err := row.Scan(
		&rec.ID, &vt, &rec.RawValue, &rec.NormalizedValue,
		&rec.IsValid, &rec.Message, &rec.Details, &rec.Source,
		&rec.RuleCode, &rec.RuleDescription, &rec.RuleType, &rec.RuleParameters,
		&rec.SubmittingApp, &rec.ClientIdentifier, &rec.RequestID,
		&rec.IsDeleted, &rec.DeletedAt, &rec.IsGolden, &rec.GoldenRecordID,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning validation record: %w", err)
	}
	rec.ValidationType = models.ValidationType(vt)
	return &rec, nil
}

func detailsOrEmpty(details map[string]any) map[string]any {
	if details == nil {
		return map[string]any{}
	}
	return details
}
