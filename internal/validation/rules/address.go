package rules

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"veritas/internal/validation/catalog"
	"veritas/internal/validation/models"
	"veritas/internal/validation/refdata"
)

const addressSource = "address_validator"

var addressFields = []string{"street", "number", "neighborhood", "city", "state", "postal_code"}

// hardRequiredFields must be non-blank on every submission. Street and
// neighborhood may arrive blank when the directory can supply them.
var hardRequiredFields = map[string]bool{
	"number": true, "city": true, "state": true, "postal_code": true,
}

// AddressValidator validates structured addresses. The postal code is
// delegated to the postal code validator; directory hits enrich missing
// fields and cross-check city and state against the submission.
type AddressValidator struct {
	directory  refdata.Directory
	postalCode *PostalCodeValidator
}

func NewAddressValidator(directory refdata.Directory, postalCode *PostalCodeValidator) *AddressValidator {
	return &AddressValidator{directory: directory, postalCode: postalCode}
}

func (v *AddressValidator) Type() models.ValidationType { return models.TypeAddress }

func (v *AddressValidator) Validate(ctx context.Context, in Input) Result {
	if in.Address == nil {
		return addressInvalid(catalog.CodeAddrMissingFields, "address payload is required", map[string]any{
			"missing_fields": addressFields,
		})
	}
	addr := *in.Address

	missing := missingFields(addr)
	for _, name := range missing {
		if hardRequiredFields[name] {
			return addressInvalid(catalog.CodeAddrMissingFields, "address is missing required fields", map[string]any{
				"missing_fields": missing,
			})
		}
	}

	state := strings.ToUpper(strings.TrimSpace(addr.State))
	if !isStateCode(state) {
		return addressInvalid(catalog.CodeAddrInvalidState, "address state must be a two-letter unit code", nil)
	}

	cepDigits := onlyDigits(addr.PostalCode)
	if cepDigits == v.directory.AddressMismatchProbe() {
		return addressInvalid(catalog.CodeAddrCEPMismatch, "address postal code does not match the submitted address", map[string]any{
			"postal_code": cepDigits,
		})
	}

	cep := v.postalCode.Validate(ctx, Input{Raw: addr.PostalCode})
	if !cep.Valid {
		return addressInvalid(catalog.CodeAddrInvalidCEP, "address postal code failed validation", map[string]any{
			"postal_code_rule": cep.RuleCode,
		})
	}

	details := map[string]any{
		"postal_code":     cep.Normalized,
		"external_lookup": "not_found",
		"geocoded":        false,
	}

	addressFound, _ := cep.Details["address_found"].(bool)
	if addressFound {
		details["external_lookup"] = "found"

		// Directory data contradicting the submission is a mismatch,
		// same as the probe code.
		dirCity, _ := cep.Details["city"].(string)
		dirState, _ := cep.Details["state"].(string)
		if !looselyEqual(dirCity, addr.City) || !strings.EqualFold(dirState, state) {
			return addressInvalid(catalog.CodeAddrCEPMismatch, "address postal code does not match the submitted address", map[string]any{
				"postal_code":     cep.Normalized,
				"directory_city":  dirCity,
				"directory_state": dirState,
			})
		}

		// Fill blanks from the directory.
		if strings.TrimSpace(addr.Street) == "" {
			addr.Street, _ = cep.Details["street"].(string)
		}
		if strings.TrimSpace(addr.Neighborhood) == "" {
			addr.Neighborhood, _ = cep.Details["neighborhood"].(string)
		}
		if geo, _ := cep.Details["geocoded"].(bool); geo {
			details["geocoded"] = true
			details["latitude"] = cep.Details["latitude"]
			details["longitude"] = cep.Details["longitude"]
		}
	}

	// Street and neighborhood must exist by now, submitted or enriched.
	if still := missingFields(addr); len(still) > 0 {
		return addressInvalid(catalog.CodeAddrMissingFields, "address is missing required fields", map[string]any{
			"missing_fields": still,
		})
	}

	details["normalized"] = true
	details["city"] = strings.TrimSpace(addr.City)
	details["state"] = state

	return Result{
		Valid:      true,
		Normalized: normalizeAddress(addr, state, cep.Normalized),
		Message:    "address is structurally valid",
		RuleCode:   catalog.CodeAddrValid,
		Source:     addressSource,
		Details:    details,
	}
}

func missingFields(addr models.AddressInput) []string {
	var missing []string
	fields := map[string]string{
		"street":       addr.Street,
		"number":       addr.Number,
		"neighborhood": addr.Neighborhood,
		"city":         addr.City,
		"state":        addr.State,
		"postal_code":  addr.PostalCode,
	}
	for _, name := range addressFields {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func isStateCode(state string) bool {
	if len(state) != 2 {
		return false
	}
	for _, r := range state {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// looselyEqual compares place names ignoring case and surrounding space.
func looselyEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// normalizeAddress renders the canonical single-line, uppercase form used
// as the election group key for addresses.
func normalizeAddress(addr models.AddressInput, state, cep string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s", strings.TrimSpace(addr.Street), strings.TrimSpace(addr.Number))
	if c := strings.TrimSpace(addr.Complement); c != "" {
		fmt.Fprintf(&b, " %s", c)
	}
	fmt.Fprintf(&b, " - %s, %s/%s - %s", strings.TrimSpace(addr.Neighborhood), strings.TrimSpace(addr.City), state, cep)
	return strings.ToUpper(b.String())
}

func addressInvalid(code, message string, details map[string]any) Result {
	if details == nil {
		details = map[string]any{}
	}
	details["normalized"] = false
	return Result{
		Valid:    false,
		Message:  message,
		RuleCode: code,
		Source:   addressSource,
		Details:  details,
	}
}
