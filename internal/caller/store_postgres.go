package caller

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"veritas/pkg/platform/sentinel"
)

// PostgresStore persists callers in the callers table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const callerColumns = `id, name, tier, key_id, secret_hash, can_delete_records, can_check_duplicates, created_at, updated_at`

func (s *PostgresStore) FindByKeyID(ctx context.Context, keyID string) (*Credential, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+callerColumns+` FROM callers WHERE key_id = $1`, keyID)
	return scanCredential(row)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*Caller, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+callerColumns+` FROM callers WHERE name = $1`, name)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, err
	}
	c := cred.Caller
	return &c, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Caller, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+callerColumns+` FROM callers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing callers: %w", err)
	}
	defer rows.Close()

	var out []*Caller
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		c := cred.Caller
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Seed inserts the development callers when the table is empty.
func (s *PostgresStore) Seed(ctx context.Context, creds []*Credential) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM callers`).Scan(&count); err != nil {
		return fmt.Errorf("counting callers: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, c := range creds {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO callers (`+callerColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (name) DO NOTHING`,
			c.ID, c.Name, string(c.Tier), c.KeyID, c.SecretHash,
			c.CanDeleteRecords, c.CanCheckDuplicates, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("seeding caller %s: %w", c.Name, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*Credential, error) {
	var c Credential
	var tier string
	err := row.Scan(&c.ID, &c.Name, &tier, &c.KeyID, &c.SecretHash,
		&c.CanDeleteRecords, &c.CanCheckDuplicates, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning caller: %w", err)
	}
	c.Tier = ParseTier(tier)
	return &c, nil
}
