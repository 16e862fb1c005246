package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/validation/catalog"
	"veritas/internal/validation/refdata"
)

func newEmailValidator(deny, allow map[string]struct{}) *EmailValidator {
	return NewEmailValidator(refdata.NewStatic(), deny, allow)
}

func TestEmailValid(t *testing.T) {
	res := newEmailValidator(nil, nil).Validate(context.Background(), Input{Raw: "  Maria.Silva@Gmail.com "})

	require.True(t, res.Valid)
	assert.Equal(t, "maria.silva@gmail.com", res.Normalized)
	assert.Equal(t, catalog.CodeEmailValid, res.RuleCode)
	assert.Equal(t, "gmail.com", res.Details["domain"])
	assert.Equal(t, true, res.Details["domain_resolves"])
	assert.Equal(t, true, res.Details["syntax_valid"])
}

func TestEmailUnresolvableDomainStillValid(t *testing.T) {
	res := newEmailValidator(nil, nil).Validate(context.Background(), Input{Raw: "joao@dominio-obscuro.net"})

	require.True(t, res.Valid)
	assert.Equal(t, false, res.Details["domain_resolves"])
}

func TestEmailDenyList(t *testing.T) {
	deny := map[string]struct{}{"mailinator.com": {}}
	res := newEmailValidator(deny, nil).Validate(context.Background(), Input{Raw: "x@mailinator.com"})

	require.False(t, res.Valid)
	assert.Equal(t, catalog.CodeEmailDisposableDomain, res.RuleCode)
}

func TestEmailAllowList(t *testing.T) {
	allow := map[string]struct{}{"empresa.com.br": {}}
	v := newEmailValidator(nil, allow)

	res := v.Validate(context.Background(), Input{Raw: "rh@empresa.com.br"})
	require.True(t, res.Valid)

	res = v.Validate(context.Background(), Input{Raw: "rh@gmail.com"})
	require.False(t, res.Valid)
	assert.Equal(t, catalog.CodeEmailDomainNotAllowed, res.RuleCode)
}

func TestEmailInvalidSyntax(t *testing.T) {
	for _, raw := range []string{"", "plainaddress", "@no-local.com", "user@", "a b@gmail.com", "user@nodot"} {
		res := newEmailValidator(nil, nil).Validate(context.Background(), Input{Raw: raw})

		require.False(t, res.Valid, raw)
		assert.Equal(t, catalog.CodeEmailInvalidSyntax, res.RuleCode, raw)
	}
}
