package rules

import (
	"context"

	"veritas/internal/validation/catalog"
	"veritas/internal/validation/models"
	"veritas/internal/validation/refdata"
)

const taxIDSource = "tax_id_validator"

// TaxIDValidator validates CPF (11 digits) and CNPJ (14 digits) documents:
// structural check digits first, then a registry status lookup. Checksum
// success alone is not enough; the document must also be active.
type TaxIDValidator struct {
	registry refdata.Directory
}

func NewTaxIDValidator(registry refdata.Directory) *TaxIDValidator {
	return &TaxIDValidator{registry: registry}
}

func (v *TaxIDValidator) Type() models.ValidationType { return models.TypeTaxID }

func (v *TaxIDValidator) Validate(_ context.Context, in Input) Result {
	digits := onlyDigits(in.Raw)

	var kind string
	switch len(digits) {
	case 11:
		kind = "cpf"
	case 14:
		kind = "cnpj"
	default:
		return Result{
			Valid:    false,
			Message:  "document must have 11 (CPF) or 14 (CNPJ) digits",
			RuleCode: catalog.CodeDocInvalidFormat,
			Source:   taxIDSource,
			Details:  map[string]any{"checksum_valid": false},
		}
	}

	details := map[string]any{"document_kind": kind}

	if allSameDigit(digits) {
		details["checksum_valid"] = false
		return Result{
			Valid:      false,
			Normalized: digits,
			Message:    "document is an all-equal digit string",
			RuleCode:   catalog.CodeDocRepeatedDigits,
			Source:     taxIDSource,
			Details:    details,
		}
	}

	checksumOK := false
	if kind == "cpf" {
		checksumOK = cpfChecksum(digits)
	} else {
		checksumOK = cnpjChecksum(digits)
	}
	details["checksum_valid"] = checksumOK

	if !checksumOK {
		return Result{
			Valid:      false,
			Normalized: digits,
			Message:    "document check digits do not match",
			RuleCode:   catalog.CodeDocChecksumFailed,
			Source:     taxIDSource,
			Details:    details,
		}
	}

	entry, found := v.registry.TaxID(digits)
	if !found {
		details["registry_active"] = false
		return Result{
			Valid:      false,
			Normalized: digits,
			Message:    "document checksum is valid but the registry has no entry",
			RuleCode:   catalog.CodeDocRegistryMissing,
			Source:     taxIDSource,
			Details:    details,
		}
	}

	details["registry_active"] = entry.Active
	details["registry_status"] = entry.Status
	if !entry.Active {
		return Result{
			Valid:      false,
			Normalized: digits,
			Message:    "document exists but is not active in the registry",
			RuleCode:   catalog.CodeDocRegistryInactive,
			Source:     taxIDSource,
			Details:    details,
		}
	}

	return Result{
		Valid:      true,
		Normalized: digits,
		Message:    "document is valid and active in the registry",
		RuleCode:   catalog.CodeDocValid,
		Source:     taxIDSource,
		Details:    details,
	}
}

// cpfChecksum verifies both CPF check digits with the mod-11 scheme:
// weights descend from 10 (first digit) and 11 (second digit); a remainder
// below 2 yields 0, otherwise 11 minus the remainder.
func cpfChecksum(digits string) bool {
	return mod11Digit(digits[:9], 10) == int(digits[9]-'0') &&
		mod11Digit(digits[:10], 11) == int(digits[10]-'0')
}

func mod11Digit(base string, startWeight int) int {
	sum := 0
	for i, c := range base {
		sum += int(c-'0') * (startWeight - i)
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// cnpjChecksum verifies both CNPJ check digits with the registry weight
// vectors.
func cnpjChecksum(digits string) bool {
	first := [...]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	second := [...]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	return weightedDigit(digits[:12], first[:]) == int(digits[12]-'0') &&
		weightedDigit(digits[:13], second[:]) == int(digits[13]-'0')
}

func weightedDigit(base string, weights []int) int {
	sum := 0
	for i, c := range base {
		sum += int(c-'0') * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}
