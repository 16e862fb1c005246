// Package caller manages the applications allowed to submit validations:
// their trust tier, their permission flags and their API credentials.
package caller

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tier ranks how much the election trusts an application's submissions.
type Tier string

const (
	TierSystemOfRecord Tier = "system_of_record"
	TierTrusted        Tier = "trusted"
	TierStandard       Tier = "standard"
	TierUnknown        Tier = "unknown"
)

// ParseTier maps a stored value onto a known tier, defaulting to unknown.
func ParseTier(s string) Tier {
	switch t := Tier(s); t {
	case TierSystemOfRecord, TierTrusted, TierStandard:
		return t
	}
	return TierUnknown
}

// Caller is an authenticated application.
type Caller struct {
	ID   uuid.UUID
	Name string
	Tier Tier

	// CanDeleteRecords gates both the delete/restore endpoints and the
	// automatic soft-delete of invalid submissions.
	CanDeleteRecords bool
	// CanCheckDuplicates gates the duplicate probe after persistence.
	CanCheckDuplicates bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential pairs a caller with its API key material. The secret is only
// ever stored hashed.
type Credential struct {
	Caller
	KeyID      string
	SecretHash string
}

// Store is the caller repository.
type Store interface {
	FindByKeyID(ctx context.Context, keyID string) (*Credential, error)
	FindByName(ctx context.Context, name string) (*Caller, error)
	List(ctx context.Context) ([]*Caller, error)
}

type contextKey struct{}

// WithContext stores the authenticated caller on the request context.
func WithContext(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the authenticated caller, or nil when the request is
// unauthenticated.
func FromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(contextKey{}).(*Caller)
	return c
}
