// Package rules holds the per-type validators. Each validator normalizes a
// raw submission, renders a verdict with a rule code from the catalog, and
// attaches typed details the decision engine and election scoring consume.
package rules

import (
	"context"
	"strings"

	"veritas/internal/validation/models"
)

// Input is one value to validate. Address submissions carry the structured
// payload; every other type uses Raw.
type Input struct {
	Raw     string
	Address *models.AddressInput
}

// Result is a validator verdict. Normalized stays empty when normalization
// failed, which keeps the record out of any election group.
type Result struct {
	Valid      bool
	Normalized string
	Message    string
	RuleCode   string
	Source     string
	Details    map[string]any
}

// Validator validates one data kind.
type Validator interface {
	Type() models.ValidationType
	Validate(ctx context.Context, in Input) Result
}

// Registry maps validation types to validators.
type Registry struct {
	byType map[models.ValidationType]Validator
}

func NewRegistry(validators ...Validator) *Registry {
	byType := make(map[models.ValidationType]Validator, len(validators))
	for _, v := range validators {
		byType[v.Type()] = v
	}
	return &Registry{byType: byType}
}

// For returns the validator for a type.
func (r *Registry) For(vt models.ValidationType) (Validator, bool) {
	v, ok := r.byType[vt]
	return v, ok
}

// onlyDigits strips everything but ASCII digits.
func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// allSameDigit reports whether s is non-empty and one repeated digit.
func allSameDigit(s string) bool {
	if s == "" {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// strictlySequential reports whether every adjacent pair ascends or every
// adjacent pair descends by exactly one.
func strictlySequential(s string) bool {
	if len(s) < 2 {
		return false
	}
	asc, desc := true, true
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1]+1 {
			asc = false
		}
		if s[i] != s[i-1]-1 {
			desc = false
		}
	}
	return asc || desc
}

// hasSuspiciousWindow scans every 4-digit window for an all-equal or
// strictly sequential run. Numbers carrying such a window are rejected even
// when they are otherwise well formed.
func hasSuspiciousWindow(digits string) bool {
	if len(digits) < 4 {
		return false
	}
	for i := 0; i+4 <= len(digits); i++ {
		w := digits[i : i+4]
		if allSameDigit(w) || strictlySequential(w) {
			return true
		}
	}
	return false
}
