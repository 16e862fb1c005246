package rules

import (
	"context"

	"veritas/internal/validation/catalog"
	"veritas/internal/validation/models"
	"veritas/internal/validation/refdata"
)

const postalCodeSource = "postal_code_validator"

// PostalCodeValidator validates Brazilian CEPs: exactly eight digits, no
// all-equal or fully sequential strings, then a postal directory lookup. An
// unknown code is still valid; the directory miss is flagged in the details
// so downstream consumers can treat it as a warning.
type PostalCodeValidator struct {
	directory refdata.Directory
}

func NewPostalCodeValidator(directory refdata.Directory) *PostalCodeValidator {
	return &PostalCodeValidator{directory: directory}
}

func (v *PostalCodeValidator) Type() models.ValidationType { return models.TypePostalCode }

func (v *PostalCodeValidator) Validate(_ context.Context, in Input) Result {
	digits := onlyDigits(in.Raw)

	if len(digits) != 8 {
		return Result{
			Valid:    false,
			Message:  "postal code must be exactly eight digits",
			RuleCode: catalog.CodeCepInvalidFormat,
			Source:   postalCodeSource,
			Details:  map[string]any{"address_found": false},
		}
	}

	if allSameDigit(digits) || strictlySequential(digits) {
		return Result{
			Valid:      false,
			Normalized: digits,
			Message:    "postal code is an all-equal or sequential digit string",
			RuleCode:   catalog.CodeCepSuspiciousPattern,
			Source:     postalCodeSource,
			Details:    map[string]any{"address_found": false},
		}
	}

	entry, found := v.directory.PostalCode(digits)
	if !found {
		return Result{
			Valid:      true,
			Normalized: digits,
			Message:    "postal code is well formed but unknown to the postal directory",
			RuleCode:   catalog.CodeCepNotFound,
			Source:     postalCodeSource,
			Details:    map[string]any{"address_found": false},
		}
	}

	details := map[string]any{
		"address_found": true,
		"street":        entry.Street,
		"neighborhood":  entry.Neighborhood,
		"city":          entry.City,
		"state":         entry.State,
		"area_code":     entry.AreaCode,
		"geocoded":      entry.HasGeo,
	}
	if entry.Complement != "" {
		details["complement"] = entry.Complement
	}
	if entry.HasGeo {
		details["latitude"] = entry.Latitude
		details["longitude"] = entry.Longitude
	}

	return Result{
		Valid:      true,
		Normalized: digits,
		Message:    "postal code found in the postal directory",
		RuleCode:   catalog.CodeCepFound,
		Source:     postalCodeSource,
		Details:    details,
	}
}
