package caller

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/secrets"
)

// Service authenticates callers and resolves their trust tiers.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Authenticate verifies an API key of the form <key_id>.<secret>.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (*Caller, error) {
	keyID, secret, ok := strings.Cut(apiKey, ".")
	if !ok || keyID == "" || secret == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "malformed API key")
	}

	cred, err := s.store.FindByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown API key")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading credential")
	}

	if !secrets.Verify(cred.SecretHash, secret) {
		s.logger.WarnContext(ctx, "api key secret mismatch", "key_id", keyID)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid API key")
	}

	c := cred.Caller
	return &c, nil
}

// LookupByName resolves a caller by application name, for JWT-authenticated
// requests where the token carries the name.
func (s *Service) LookupByName(ctx context.Context, name string) (*Caller, error) {
	c, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading caller")
	}
	return c, nil
}

// TierFor resolves the trust tier of an application for election scoring.
// Unknown applications score at the unknown tier rather than failing the
// election.
func (s *Service) TierFor(ctx context.Context, name string) Tier {
	c, err := s.store.FindByName(ctx, name)
	if err != nil {
		return TierUnknown
	}
	return c.Tier
}
