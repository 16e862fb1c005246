// Package catalog is the immutable business rule catalog. Every rule code a
// validator or the decision engine can stamp onto a record is declared here,
// so downstream consumers (reporting, audit) resolve codes to stable
// descriptions.
package catalog

// Rule code families. DOC covers tax IDs, TEL phones, CEP postal codes,
// RNE emails, END addresses.
const (
	// Tax ID
	CodeDocValid            = "RN_DOC001"
	CodeDocInvalidFormat    = "RN_DOC002"
	CodeDocChecksumFailed   = "RN_DOC003"
	CodeDocRepeatedDigits   = "RN_DOC004"
	CodeDocRegistryInactive = "RN_DOC005"
	CodeDocRegistryMissing  = "RN_DOC006"
	CodeDocRegistryDown     = "RN_DOC007"

	// Phone
	CodeTelValid             = "RN_TEL001"
	CodeTelInvalidFormat     = "RN_TEL002"
	CodeTelUnknownAreaCode   = "RN_TEL003"
	CodeTelInconsistentType  = "RN_TEL004"
	CodeTelServiceNumber     = "RN_TEL005"
	CodeTelUnknownService    = "RN_TEL006"
	CodeTelSuspiciousPattern = "RN_TEL007"

	// Postal code
	CodeCepFound             = "VAL_CEP001"
	CodeCepNotFound          = "VAL_CEP002"
	CodeCepInvalidFormat     = "VAL_CEP003"
	CodeCepSuspiciousPattern = "VAL_CEP004"

	// Email
	CodeEmailValid            = "RNE001"
	CodeEmailInvalidSyntax    = "RNE002"
	CodeEmailDisposableDomain = "RNE003"
	CodeEmailDomainNotAllowed = "RNE004"

	// Address
	CodeAddrValid         = "VAL_END001"
	CodeAddrMissingFields = "VAL_END002"
	CodeAddrInvalidCEP    = "VAL_END003"
	CodeAddrCEPMismatch   = "VAL_END004"
	CodeAddrInvalidState  = "VAL_END005"

	// Decision engine outcomes
	CodeDefault       = "RN_DEFAULT"
	CodeTelCompliance = "RN_TEL_COMPLIANCE"
	CodeCepEnrichment = "VAL_CEP_ENRICH"
)

// Rule categories.
const (
	CategoryValidation = "validation"
	CategoryCompliance = "compliance"
	CategoryEnrichment = "enrichment"
	CategoryDefault    = "default"
)

// Rule severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Entry describes one business rule.
type Entry struct {
	Code        string
	Description string
	Category    string
	Severity    string
}

// Catalog resolves rule codes. It is built once at startup and never
// mutated afterwards.
type Catalog struct {
	entries map[string]Entry
}

// New returns the full rule catalog.
func New() *Catalog {
	entries := []Entry{
		{CodeDocValid, "document is valid and active in the registry", CategoryValidation, SeverityInfo},
		{CodeDocInvalidFormat, "document has an invalid length or format", CategoryValidation, SeverityError},
		{CodeDocChecksumFailed, "document check digits do not match", CategoryValidation, SeverityError},
		{CodeDocRepeatedDigits, "document is an all-equal digit string", CategoryValidation, SeverityError},
		{CodeDocRegistryInactive, "document exists but is not active in the registry", CategoryValidation, SeverityError},
		{CodeDocRegistryMissing, "document checksum is valid but the registry has no entry", CategoryValidation, SeverityError},
		{CodeDocRegistryDown, "tax registry lookup unavailable", CategoryValidation, SeverityWarning},

		{CodeTelValid, "phone number is valid", CategoryValidation, SeverityInfo},
		{CodeTelInvalidFormat, "phone number has an invalid format", CategoryValidation, SeverityError},
		{CodeTelUnknownAreaCode, "phone area code is not a known DDD", CategoryValidation, SeverityError},
		{CodeTelInconsistentType, "phone number length is inconsistent with its type", CategoryValidation, SeverityError},
		{CodeTelServiceNumber, "short number is a recognized public service number", CategoryValidation, SeverityInfo},
		{CodeTelUnknownService, "short number is not a recognized service number", CategoryValidation, SeverityError},
		{CodeTelSuspiciousPattern, "phone number carries a sequential or repeated digit pattern", CategoryValidation, SeverityError},

		{CodeCepFound, "postal code found in the postal directory", CategoryValidation, SeverityInfo},
		{CodeCepNotFound, "postal code is well formed but unknown to the postal directory", CategoryValidation, SeverityWarning},
		{CodeCepInvalidFormat, "postal code must be exactly eight digits", CategoryValidation, SeverityError},
		{CodeCepSuspiciousPattern, "postal code is an all-equal or sequential digit string", CategoryValidation, SeverityError},

		{CodeEmailValid, "email address is syntactically valid", CategoryValidation, SeverityInfo},
		{CodeEmailInvalidSyntax, "email address is not syntactically valid", CategoryValidation, SeverityError},
		{CodeEmailDisposableDomain, "email domain is deny-listed as disposable", CategoryValidation, SeverityError},
		{CodeEmailDomainNotAllowed, "email domain is not in the allowed set", CategoryValidation, SeverityError},

		{CodeAddrValid, "address is structurally valid", CategoryValidation, SeverityInfo},
		{CodeAddrMissingFields, "address is missing required fields", CategoryValidation, SeverityError},
		{CodeAddrInvalidCEP, "address postal code failed validation", CategoryValidation, SeverityError},
		{CodeAddrCEPMismatch, "address postal code does not match the submitted address", CategoryValidation, SeverityError},
		{CodeAddrInvalidState, "address state must be a two-letter unit code", CategoryValidation, SeverityError},

		{CodeDefault, "no specific business rule matched", CategoryDefault, SeverityInfo},
		{CodeTelCompliance, "mobile number accepted under strict compliance policy", CategoryCompliance, SeverityInfo},
		{CodeCepEnrichment, "postal code enriched from the postal directory", CategoryEnrichment, SeverityInfo},
	}

	byCode := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byCode[e.Code] = e
	}
	return &Catalog{entries: byCode}
}

// Lookup resolves a rule code. Entries are returned by value, so callers
// cannot mutate the catalog.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	e, ok := c.entries[code]
	return e, ok
}

// Default returns the fallback rule.
func (c *Catalog) Default() Entry {
	return c.entries[CodeDefault]
}

// Codes returns all known rule codes.
func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.entries))
	for code := range c.entries {
		out = append(out, code)
	}
	return out
}
