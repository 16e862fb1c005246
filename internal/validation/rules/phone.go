package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"veritas/internal/validation/catalog"
	"veritas/internal/validation/models"
	"veritas/internal/validation/refdata"
)

const phoneSource = "phone_validator"

// Brazilian DDD area codes currently in service.
var validDDDs = map[string]struct{}{
	"11": {}, "12": {}, "13": {}, "14": {}, "15": {}, "16": {}, "17": {}, "18": {}, "19": {},
	"21": {}, "22": {}, "24": {}, "27": {}, "28": {},
	"31": {}, "32": {}, "33": {}, "34": {}, "35": {}, "37": {}, "38": {},
	"41": {}, "42": {}, "43": {}, "44": {}, "45": {}, "46": {}, "47": {}, "48": {}, "49": {},
	"51": {}, "53": {}, "54": {}, "55": {},
	"61": {}, "62": {}, "63": {}, "64": {}, "65": {}, "66": {}, "67": {}, "68": {}, "69": {},
	"71": {}, "73": {}, "74": {}, "75": {}, "77": {}, "79": {},
	"81": {}, "82": {}, "83": {}, "84": {}, "85": {}, "86": {}, "87": {}, "88": {}, "89": {},
	"91": {}, "92": {}, "93": {}, "94": {}, "95": {}, "96": {}, "97": {}, "98": {}, "99": {},
}

// Public service short numbers (police, ambulance, utilities).
var serviceNumbers = map[string]struct{}{
	"100": {}, "128": {}, "180": {}, "181": {}, "185": {}, "188": {},
	"190": {}, "191": {}, "192": {}, "193": {}, "194": {}, "197": {},
	"198": {}, "199": {},
}

// PhoneValidator validates phone numbers. The parsing library is the
// primary path; a format heuristic covers numbers the library cannot place,
// and the suspicious-window rule overrides both.
type PhoneValidator struct {
	directory     refdata.Directory
	defaultRegion string
}

func NewPhoneValidator(directory refdata.Directory, defaultRegion string) *PhoneValidator {
	if defaultRegion == "" {
		defaultRegion = "BR"
	}
	return &PhoneValidator{directory: directory, defaultRegion: defaultRegion}
}

func (v *PhoneValidator) Type() models.ValidationType { return models.TypePhone }

func (v *PhoneValidator) Validate(_ context.Context, in Input) Result {
	raw := strings.TrimSpace(in.Raw)
	digits := onlyDigits(raw)
	hasPlus := strings.HasPrefix(raw, "+")

	if digits == "" {
		return phoneInvalid(catalog.CodeTelInvalidFormat, "phone number carries no digits")
	}

	// Short numbers are service numbers or nothing.
	if len(digits) <= 6 {
		if len(digits) == 3 {
			if _, ok := serviceNumbers[digits]; ok {
				return Result{
					Valid:      true,
					Normalized: digits,
					Message:    "recognized public service number",
					RuleCode:   catalog.CodeTelServiceNumber,
					Source:     phoneSource,
					Details:    map[string]any{"phone_type": "service", "library_confirmed": false},
				}
			}
			return phoneInvalid(catalog.CodeTelUnknownService, "short number is not a recognized service number")
		}
		return phoneInvalid(catalog.CodeTelInvalidFormat, "phone number is too short")
	}

	// The suspicious-window rule beats everything, including numbers the
	// library would accept.
	if hasSuspiciousWindow(digits) {
		return phoneInvalid(catalog.CodeTelSuspiciousPattern, "phone number carries a sequential or repeated digit pattern")
	}

	if res, ok := v.libraryParse(raw); ok {
		return res
	}

	if hasPlus {
		return v.internationalHeuristic(digits)
	}
	return v.nationalHeuristic(digits)
}

// libraryParse runs the number through the phone library and accepts its
// verdict when it recognizes the number as valid.
func (v *PhoneValidator) libraryParse(raw string) (Result, bool) {
	num, err := phonenumbers.Parse(raw, v.defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return Result{}, false
	}

	e164 := phonenumbers.Format(num, phonenumbers.E164)
	details := map[string]any{
		"library_confirmed": true,
		"phone_type":        phoneTypeName(phonenumbers.GetNumberType(num)),
		"country_code":      fmt.Sprintf("%d", num.GetCountryCode()),
	}
	v.annotateDirectory(details, strings.TrimPrefix(e164, "+"))

	return Result{
		Valid:      true,
		Normalized: e164,
		Message:    "phone number is valid",
		RuleCode:   catalog.CodeTelValid,
		Source:     phoneSource,
		Details:    details,
	}, true
}

// internationalHeuristic accepts +CC numbers the library cannot place:
// 1-4 country code digits followed by a 7-15 digit national number.
func (v *PhoneValidator) internationalHeuristic(digits string) Result {
	if len(digits) < 8 || len(digits) > 19 {
		return phoneInvalid(catalog.CodeTelInvalidFormat, "international number length out of range")
	}
	ccLen := len(digits) - 15
	if ccLen < 1 {
		ccLen = 1
	}
	if ccLen > 4 {
		return phoneInvalid(catalog.CodeTelInvalidFormat, "international number length out of range")
	}

	details := map[string]any{
		"library_confirmed": false,
		"phone_type":        "international",
		"country_code":      digits[:ccLen],
	}
	v.annotateDirectory(details, digits)

	return Result{
		Valid:      true,
		Normalized: "+" + digits,
		Message:    "international number accepted by format",
		RuleCode:   catalog.CodeTelValid,
		Source:     phoneSource,
		Details:    details,
	}
}

// nationalHeuristic validates DDD + subscriber numbers submitted without a
// country marker. A 55 prefix on 12-13 digit strings is treated as the
// country code.
func (v *PhoneValidator) nationalHeuristic(digits string) Result {
	if (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) != 10 && len(digits) != 11 {
		return phoneInvalid(catalog.CodeTelInvalidFormat, "phone number must be 10 or 11 digits with area code")
	}

	ddd := digits[:2]
	if _, ok := validDDDs[ddd]; !ok {
		return phoneInvalid(catalog.CodeTelUnknownAreaCode, "phone area code is not a known DDD")
	}

	var phoneType string
	switch {
	case len(digits) == 11 && digits[2] == '9':
		phoneType = "mobile"
	case len(digits) == 10 && digits[2] >= '2' && digits[2] <= '5':
		phoneType = "landline"
	default:
		return phoneInvalid(catalog.CodeTelInconsistentType, "phone number length is inconsistent with its type")
	}

	details := map[string]any{
		"library_confirmed": false,
		"phone_type":        phoneType,
		"country_code":      "55",
		"area_code":         ddd,
	}
	v.annotateDirectory(details, "55"+digits)

	return Result{
		Valid:      true,
		Normalized: "+55" + digits,
		Message:    "phone number is valid",
		RuleCode:   catalog.CodeTelValid,
		Source:     phoneSource,
		Details:    details,
	}
}

func (v *PhoneValidator) annotateDirectory(details map[string]any, fullDigits string) {
	entry, ok := v.directory.Phone(fullDigits)
	if !ok {
		return
	}
	details["operator"] = entry.Operator
	details["subscriber_active"] = entry.Active
}

func phoneTypeName(t phonenumbers.PhoneNumberType) string {
	switch t {
	case phonenumbers.MOBILE:
		return "mobile"
	case phonenumbers.FIXED_LINE:
		return "landline"
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		return "fixed_or_mobile"
	default:
		return "other"
	}
}

func phoneInvalid(code, message string) Result {
	return Result{
		Valid:    false,
		Message:  message,
		RuleCode: code,
		Source:   phoneSource,
		Details:  map[string]any{"library_confirmed": false},
	}
}
