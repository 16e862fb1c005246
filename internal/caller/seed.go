package caller

import (
	"context"
	"time"

	"github.com/google/uuid"

	"veritas/pkg/secrets"
)

// SeedCaller describes one development caller with its plaintext API key.
type SeedCaller struct {
	Name               string
	Tier               Tier
	KeyID              string
	Secret             string
	CanDeleteRecords   bool
	CanCheckDuplicates bool
}

// DevSeed lists the local development callers. The plaintext secrets here
// exist only for local runs and the test suite.
func DevSeed() []SeedCaller {
	return []SeedCaller{
		{
			Name:               "crm_app",
			Tier:               TierSystemOfRecord,
			KeyID:              "crm",
			Secret:             "crm-dev-secret",
			CanDeleteRecords:   true,
			CanCheckDuplicates: true,
		},
		{
			Name:               "ecommerce_front",
			Tier:               TierTrusted,
			KeyID:              "ecom",
			Secret:             "ecom-dev-secret",
			CanCheckDuplicates: true,
		},
		{
			Name:   "legacy_batch",
			Tier:   TierStandard,
			KeyID:  "legacy",
			Secret: "legacy-dev-secret",
		},
	}
}

// BuildCredentials hashes the seed secrets into storable credentials.
func BuildCredentials(seed []SeedCaller, now time.Time) []*Credential {
	out := make([]*Credential, 0, len(seed))
	for _, s := range seed {
		out = append(out, &Credential{
			Caller: Caller{
				ID:                 uuid.New(),
				Name:               s.Name,
				Tier:               s.Tier,
				CanDeleteRecords:   s.CanDeleteRecords,
				CanCheckDuplicates: s.CanCheckDuplicates,
				CreatedAt:          now,
				UpdatedAt:          now,
			},
			KeyID:      s.KeyID,
			SecretHash: secrets.MustHash(s.Secret),
		})
	}
	return out
}

// Seeder lets stores receive the development callers when empty.
type Seeder interface {
	Seed(ctx context.Context, creds []*Credential) error
}
