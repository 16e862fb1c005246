package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/validation/catalog"
	"veritas/internal/validation/refdata"
)

func newPostalCodeValidator() *PostalCodeValidator {
	return NewPostalCodeValidator(refdata.NewStatic())
}

func TestPostalCodeFound(t *testing.T) {
	res := newPostalCodeValidator().Validate(context.Background(), Input{Raw: "01001-000"})

	require.True(t, res.Valid)
	assert.Equal(t, "01001000", res.Normalized)
	assert.Equal(t, catalog.CodeCepFound, res.RuleCode)
	assert.Equal(t, true, res.Details["address_found"])
	assert.Equal(t, "Praça da Sé", res.Details["street"])
	assert.Equal(t, "SP", res.Details["state"])
	assert.Equal(t, true, res.Details["geocoded"])
}

func TestPostalCodeUnknownIsValidWithWarning(t *testing.T) {
	res := newPostalCodeValidator().Validate(context.Background(), Input{Raw: "07273-120"})

	require.True(t, res.Valid)
	assert.Equal(t, "07273120", res.Normalized)
	assert.Equal(t, catalog.CodeCepNotFound, res.RuleCode)
	assert.Equal(t, false, res.Details["address_found"])
}

func TestPostalCodeSuspiciousPatterns(t *testing.T) {
	v := newPostalCodeValidator()

	for _, raw := range []string{"11111111", "12345678", "87654321"} {
		res := v.Validate(context.Background(), Input{Raw: raw})

		require.False(t, res.Valid, raw)
		assert.Equal(t, catalog.CodeCepSuspiciousPattern, res.RuleCode, raw)
	}
}

func TestPostalCodeWrongLength(t *testing.T) {
	for _, raw := range []string{"", "1234-567", "012345678", "abcdefgh"} {
		res := newPostalCodeValidator().Validate(context.Background(), Input{Raw: raw})

		require.False(t, res.Valid, raw)
		assert.Equal(t, catalog.CodeCepInvalidFormat, res.RuleCode, raw)
		assert.Empty(t, res.Normalized, raw)
	}
}

func TestPostalCodeNoGeoEntry(t *testing.T) {
	res := newPostalCodeValidator().Validate(context.Background(), Input{Raw: "70040-010"})

	require.True(t, res.Valid)
	assert.Equal(t, false, res.Details["geocoded"])
}
